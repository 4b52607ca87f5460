// Package state defines the values carried by flight controller state
// fields.
//
// A field value is one of Bool, Int, Float or Vector. Enum-backed fields
// travel as Int ordinals. The package does not know any field schema;
// shape checking belongs to the controller that owns the field.
package state
