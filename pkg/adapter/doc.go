// Package adapter defines the seam between the engine and whatever draws the
// form. Leaf adapters receive managed Props and report edits back; layout
// containers only arrange rendered children. The Registry picks an adapter per
// leaf from an explicit name or from kind matchers ranked by priority.
package adapter
