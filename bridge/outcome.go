// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/shuttlecraft/shuttle/serviceapi"
)

// Outcome is the discriminated result of one invocation. Exactly one variant
// is populated:
//   - Signal non-nil: the worker deliberately reported a structured failure.
//   - otherwise Result holds the worker's JSON result; nil Result means the
//     worker produced no output, which is success, not an error.
//
// Process crashes, malformed output, and handoff failures are Go errors, not
// Outcomes.
type Outcome struct {
	Result json.RawMessage
	Signal *serviceapi.Signal
}

// ExitError reports a worker process that terminated with a nonzero exit
// code. No structured error is available; transports surface it generically.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("worker exited with code %d", e.Code)
}

// finalizeOutput reads the output handoff and classifies its contents.
// An absent or empty file resolves to an empty Outcome. Valid JSON with an
// integral numeric code field is a Signal; any other valid JSON is the
// result. Anything else is an error: raw non-JSON text must never be passed
// through as if it were a result.
func finalizeOutput(fs afero.Fs, path string) (*Outcome, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Outcome{}, nil
		}
		return nil, errors.Wrap(err, "reading output handoff")
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &Outcome{}, nil
	}
	if !json.Valid(trimmed) {
		return nil, errors.Newf("worker output is not valid JSON (%d bytes)", len(trimmed))
	}
	if sig, ok := serviceapi.SignalFromRaw(trimmed); ok {
		return &Outcome{Signal: sig}, nil
	}
	return &Outcome{Result: trimmed}, nil
}
