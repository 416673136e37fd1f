// Package secret seals and opens credentials stored in the environment.
//
// Values are encrypted with NaCl secretbox (XSalsa20-Poly1305) under a 32-byte
// key taken from ENCRYPTION_KEY. A sealed value is written as "enc:" followed
// by the URL-safe base64 encoding of nonce||ciphertext, so it can sit in a
// .env file next to plain values.
package secret
