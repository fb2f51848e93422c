// Package confloader loads configuration with koanf.
//
// Sources, lowest to highest priority:
//
//  1. Defaults (the target struct as passed in)
//  2. YAML configuration file
//  3. Environment variable aliases (e.g. MONGODB_URL)
//  4. Prefixed environment variables (BRAIN_SECTION_KEY)
//
// Watcher reloads on configuration file changes via fsnotify.
package confloader
