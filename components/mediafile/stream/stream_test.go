// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package stream

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/pion/rtp/v2"
	"github.com/stretchr/testify/require"
)

const sampleSDP = "v=0\r\n" +
	"o=- 0 0 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"c=IN IP4 127.0.0.1\r\n" +
	"t=0 0\r\n" +
	"m=audio 0 RTP/AVP 97\r\n" +
	"a=rtpmap:97 L16/48000/2\r\n"

func TestParseSDPExtractsAudioMediaInfo(t *testing.T) {
	infos, err := ParseSDP([]byte(sampleSDP))
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, KindAudio, infos[0].Kind)
	require.Equal(t, uint32(48000), infos[0].ClockRate)
	require.Equal(t, 2, infos[0].Channels)
	require.Equal(t, "L16", infos[0].Codec)
}

func TestParseSDPRejectsUnknownMediaType(t *testing.T) {
	const badSDP = "v=0\r\n" +
		"o=- 0 0 IN IP4 127.0.0.1\r\n" +
		"s=-\r\n" +
		"t=0 0\r\n" +
		"m=application 0 RTP/AVP 98\r\n"
	_, err := ParseSDP([]byte(badSDP))
	require.Error(t, err)
}

func TestParseSDPRejectsEmptyMediaList(t *testing.T) {
	const noMediaSDP = "v=0\r\n" +
		"o=- 0 0 IN IP4 127.0.0.1\r\n" +
		"s=-\r\n" +
		"t=0 0\r\n"
	_, err := ParseSDP([]byte(noMediaSDP))
	require.ErrorIs(t, err, ErrNoMediaDescriptions)
}

func packetize(seq uint16, ts uint32, payload []byte) []byte {
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    97,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           1,
		},
		Payload: payload,
	}
	raw, err := pkt.Marshal()
	if err != nil {
		panic(err)
	}
	return raw
}

func dumpOf(packets ...[]byte) io.Reader {
	var buf bytes.Buffer
	for _, p := range packets {
		var lenPrefix [2]byte
		binary.BigEndian.PutUint16(lenPrefix[:], uint16(len(p)))
		buf.Write(lenPrefix[:])
		buf.Write(p)
	}
	return &buf
}

func TestDemuxerComputesRelativePTSFromClockRate(t *testing.T) {
	info := MediaInfo{Kind: KindAudio, ClockRate: 48000, Channels: 1}
	r := dumpOf(
		packetize(1, 48000, []byte{0, 0}),
		packetize(2, 48000+24000, []byte{1, 1}),
	)
	dem := NewDemuxer(r, info)

	f1, err := dem.Next()
	require.NoError(t, err)
	require.Equal(t, 0.0, f1.PTSSec)

	f2, err := dem.Next()
	require.NoError(t, err)
	require.InDelta(t, 0.5, f2.PTSSec, 1e-9)
	require.Equal(t, KindAudio, f2.Kind)

	_, err = dem.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDemuxerRejectsTruncatedPacket(t *testing.T) {
	info := MediaInfo{Kind: KindAudio, ClockRate: 48000, Channels: 1}
	var buf bytes.Buffer
	buf.Write([]byte{0, 10}) // claims 10 bytes follow, supplies none
	dem := NewDemuxer(&buf, info)

	_, err := dem.Next()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "truncated"))
}
