/*
Package pcap opens live, promiscuous, Ethernet framed capture channels without libpcap.

 MacOS uses a /dev/bpf* device instead of a raw socket. Some good examples:
  https://github.com/c-bata/xpcap/blob/master/sniffer.c#L50
  https://gist.github.com/2opremio/6fda363ab384b0d85347956fb79a3927
 Linux uses a raw socket.
  For syscall-based capture: see http://www.microhowto.info/howto/capture_ethernet_frames_using_an_af_packet_socket_in_c.html

Reads block in poll(2) on the capture descriptor together with a wake pipe.
Cancelling the context passed to OpenLive writes the pipe, which is the only
way to abort a pending read.
*/
package pcap
