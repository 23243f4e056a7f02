// Package descriptor holds the parsed, immutable request shape of each
// declared API method.
//
// A Method names its HTTP verb, path template, ordered query bindings and
// result type. The result type is a tagged variant fixed when the
// descriptor is built:
//
//	descriptor.Value[T]()    // call blocks, returns T
//	descriptor.Callback[T]() // call returns a *call.Call[T]
//	descriptor.Stream[T]()   // call returns a cold *stream.Stream[T]
//
// Descriptors are collected in a Table once at startup:
//
//	table, err := descriptor.NewTable(
//	    descriptor.Get("Users", "/search/users", descriptor.Value[UserList](),
//	        descriptor.Fields("q", "sort")...),
//	)
package descriptor
