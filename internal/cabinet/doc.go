// Package cabinet reads content-addressed file cabinets.
//
// A cabinet stores three kinds of object:
//
//	data/<h[0:2]>/<h[2:]>   content blobs, named by the md5 of their stored bytes
//	tags/<id>               JSON tag files naming a bucket manifest blob
//	versions/<id>/<stamp>   every tag file ever written for <id>
//
// A bucket manifest is a tab-separated list of the files in a tag:
//
//	hash  path  size  time(RFC 3339)  origHash  origSize  attr
//
// Blobs may be zlib-compressed (attr bit 1) and AES-CFB encrypted (attr bit
// 2); the tag file carries the key and IV. Encryption is applied after
// compression, so Decode decrypts first.
//
// FileStore reads a cabinet from a directory and S3Store from an S3 bucket.
// Cabinet layers manifest decoding and caching over either.
package cabinet
