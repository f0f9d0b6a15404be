/*
Package ezimage provides types, constants and functions that have no other
dependencies and can be used by all packages within this client library:
leveled logging, the client error taxonomy, pixel value typing, and the
5-dimensional (X,Y,Z,C,T) geometry used for region requests.
*/
package ezimage
