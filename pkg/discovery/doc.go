// Package discovery announces the head unit's wireless projection
// listener over mDNS/DNS-SD.
//
// # Projection Discovery (_openprojection._tcp)
//
// The head unit advertises a single service instance named after its
// display name. TXT records carry the identity a phone shows before
// connecting: name, make, model, ver (protocol version), and optionally
// year and st (availability). The listen port travels in the SRV
// record, never in TXT.
//
// Phones browse for the service, pick a head unit, and open a TCP
// connection to the advertised port. Advertising continues while a
// session is active so another device can take over; the st record
// tells browsers whether the head unit is waiting or already
// projecting.
package discovery
