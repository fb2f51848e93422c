// Package value implements value semantics over the JSON value domain.
//
// Brain data is arbitrary structured data: nil, booleans, numbers, strings,
// sequences and string-keyed mappings. Hosts rebuild these structures on every
// tick, so change detection cannot rely on pointer identity. This package
// provides:
//
//   - Equal: recursive structural equality (order-sensitive for sequences,
//     key-set and value recursive for mappings, numbers compared by value)
//   - Copy: deep copies that share no memory with the source
//   - Normalize: conversion of typed Go values into the plain JSON domain
//   - Matches: partial-field matching used by side-collection lookups
package value
