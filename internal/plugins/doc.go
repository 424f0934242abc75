// SPDX-License-Identifier: MPL-2.0

// Package plugins holds the built-in extension plugins. Their commands are
// added to every command graph under the plugin namespace ("info:deps") when
// the plugin is enabled in the configuration.
package plugins
