// SPDX-License-Identifier: MPL-2.0

// Package config handles apb configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/apb/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/apb/config.cue on macOS and
// %APPDATA%\apb\config.cue on Windows), falling back to ./config.cue. Files are
// validated against the embedded config_schema.cue. APB_* environment variables
// override file values.
package config
