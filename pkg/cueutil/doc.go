// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE parsing flow shared by the project loader and
// the configuration loader: compile the embedded schema, unify the user file
// with a root definition, validate, then decode.
//
//	//go:embed project_schema.cue
//	var schema []byte
//
//	result, err := cueutil.ParseAndDecode[projectFile](schema, data, "#Project",
//		cueutil.WithFilename("project.cue"))
package cueutil
