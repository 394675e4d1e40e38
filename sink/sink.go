// Package sink provides transport adapters implementing bridge.PacketSink.
//
// Each adapter takes serialized VRT packets from the pipeline and moves
// them somewhere concrete: a UDP socket, rotating segment files, an S3
// bucket, or nowhere at all for dry runs.
package sink

import "fmt"

// DefaultSegmentBytes is the rotation threshold shared by the file and
// S3 sinks.
const DefaultSegmentBytes = 64 << 20

// segmentName formats the zero-padded file name of segment n.
func segmentName(n int) string {
	return fmt.Sprintf("segment-%06d.vrt", n)
}
