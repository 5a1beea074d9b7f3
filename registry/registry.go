// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

// Package registry holds the set of invokable services. The set is populated
// once at host startup, by directory discovery for process services and by
// explicit registration for in-process functions, and is immutable afterward.
// Adding a service requires a host restart.
package registry

import (
	"bufio"
	"bytes"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/shuttlecraft/shuttle/serviceapi"
)

var (
	ErrNotFound  = errors.New("service not found")
	ErrDuplicate = errors.New("service already registered")
)

// Registry maps service names to descriptors. It is not safe for concurrent
// mutation; all Register calls happen during startup, before the server
// accepts requests.
type Registry struct {
	services map[string]serviceapi.Descriptor
}

func New() *Registry {
	return &Registry{services: make(map[string]serviceapi.Descriptor)}
}

func (r *Registry) Register(desc serviceapi.Descriptor) error {
	if desc.Name == "" {
		return errors.New("service name must not be empty")
	}
	if desc.Kind == serviceapi.KindFunction && desc.Fn == nil {
		return errors.Newf("function service %s has no implementation", desc.Name)
	}
	if _, exists := r.services[desc.Name]; exists {
		return errors.Wrapf(ErrDuplicate, "%s", desc.Name)
	}
	r.services[desc.Name] = desc
	return nil
}

// RegisterFunction adds an in-process service. This is the static
// registration table for services where process-spawn overhead is
// undesirable.
func (r *Registry) RegisterFunction(name, description string, fn serviceapi.Fn) error {
	return r.Register(serviceapi.Descriptor{
		Name:        name,
		Kind:        serviceapi.KindFunction,
		Description: description,
		Fn:          fn,
	})
}

func (r *Registry) Lookup(name string) (serviceapi.Descriptor, error) {
	desc, ok := r.services[name]
	if !ok {
		return serviceapi.Descriptor{}, errors.Wrapf(ErrNotFound, "%s", name)
	}
	return desc, nil
}

// List returns all descriptors sorted by name.
func (r *Registry) List() []serviceapi.Descriptor {
	out := make([]serviceapi.Descriptor, 0, len(r.services))
	for _, desc := range r.services {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int {
	return len(r.services)
}

// Discover scans the immediate subdirectories of root for process services.
// A subdirectory qualifies if its name does not start with an underscore and
// it contains an entry file named <dir>.py. The description comes from an
// adjacent README.md when present; absence is not an error.
func Discover(fs afero.Fs, root string) ([]serviceapi.Descriptor, error) {
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, errors.Wrapf(err, "scanning services root %s", root)
	}

	var found []serviceapi.Descriptor
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		dir := filepath.Join(root, name)
		entryFile := filepath.Join(dir, name+".py")
		if ok, _ := afero.Exists(fs, entryFile); !ok {
			continue
		}
		found = append(found, serviceapi.Descriptor{
			Name:        name,
			Kind:        serviceapi.KindProcess,
			Description: readDescription(fs, dir),
			Dir:         dir,
		})
	}
	return found, nil
}

// readDescription returns the first non-empty line of the service's
// README.md, with any heading marker stripped.
func readDescription(fs afero.Fs, dir string) string {
	raw, err := afero.ReadFile(fs, filepath.Join(dir, "README.md"))
	if err != nil {
		return ""
	}
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		return strings.TrimSpace(strings.TrimLeft(line, "#"))
	}
	return ""
}
