package internal

// Into converts a value into its wire representation.
type Into[T any] interface {
	Into() T
}
