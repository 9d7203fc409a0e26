// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package validation provides struct validation using go-playground/validator v10.
//
// # Quick Start
//
//	type createEventBody struct {
//	    Name string `json:"name" validate:"required"`
//	}
//
//	if verr := validation.ValidateStruct(&body); verr != nil {
//	    writeError(w, http.StatusBadRequest, verr.Error())
//	    return
//	}
//
// # Tags in use
//
//   - required: Port, DataDir, Timezone (internal/config.Config), Name (createEventBody)
//   - min=n / max=n: Port, HTTPPort bounds
//   - oneof=a b c: LogLevel, LogFormat
//
// translateError also recognizes email, datetime, base64/base64url, latitude,
// longitude, gte, gt, lte, lt, generically — built in from the underlying
// validator library even though no current struct tag in this tree uses them,
// so a future request or config field can opt in without touching this
// package.
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use.
package validation
