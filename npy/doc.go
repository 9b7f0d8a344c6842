// Package npy reads and writes arrays in the NumPy .npy binary format.
//
// An Array keeps its elements as raw bytes in storage order together with the
// dtype descriptor, shape and memory-order flag found in the file header, so
// blobs written by NumPy round trip through this package byte for byte.
// Typed access is available through New, Scalar and Values for the fixed-size
// numeric and boolean dtypes.
//
// The header layout follows numpy.lib.format: a 6-byte magic string, a
// version pair, a little-endian header length and a Python dict literal padded
// with spaces to a 64-byte boundary.
package npy
