// Package output renders brainctl results as a table, JSON or YAML.
package output
