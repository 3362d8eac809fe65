/*
Package ethsniff captures Ethernet frames on the interface that owns a given
address and reports their header fields.

A Sniffer runs Initializing -> Running -> Draining -> Terminated on the calling
goroutine. Receives block; the shutdown flag is checked before and after each
one, so an interrupt is honoured after at most one pending receive. The
capture handle is opened with the flag's context, which lets the pcap package
wake a pending receive when the flag is set; the late error from that
receive is expected and not reported.

Known limitation: interface selection ignores adapter up/down state and
takes the first adapter in platform enumeration order when an address is
configured on several.
*/
package ethsniff
