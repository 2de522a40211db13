// Package dnsresponder implements the DNS hijack responder used while the
// clock runs its setup access point.
//
// Every query, whatever name it asks for, is answered with a single A record
// pointing at the access point's own address. Phones and laptops that join
// the setup network probe a connectivity-check domain, receive the clock's
// address, reach the captive portal and pop up the configuration page.
//
// # Answer Format
//
// The responder does not parse queries. It rewrites the header in place and
// appends a fixed 16-byte answer after the unmodified query bytes:
//
//	header byte 2 |= 0x84      QR (response) and AA (authoritative)
//	header byte 3 |= 0x80      RA (recursion available)
//	ANCOUNT        = 1
//	c0 0c                      name: pointer to the question at offset 12
//	00 01 00 01                type A, class IN
//	00 00 00 0a                TTL (10 s by default)
//	00 04 a b c d              RDLENGTH 4, the bound IPv4 address
//
// This is deliberately not a compliant resolver; it only needs to be good
// enough to trigger captive-portal detection.
//
// # Robustness
//
// Packets larger than MaxPacketSize (100 bytes by default) are logged and
// dropped. Reads use a short timeout so that Serve can notice cancellation;
// a timeout is the idle case and not an error.
package dnsresponder
