// Package request turns a method descriptor and call-time arguments into a
// fully-qualified GET request.
//
// URLs take the form:
//
//	{baseURL}{path}?{key1}={value1}&{key2}={value2}...
//
// Pairs are appended in binding order. The first appended pair is joined
// with "?" and every later one with "&"; the decision depends only on how
// many pairs have been appended, not on the path template. Keys and
// values are percent-encoded, so a "?" or "&" inside an argument cannot
// break the pairing.
package request
