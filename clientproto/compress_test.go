// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clientproto

import (
	"bytes"
	"math/rand/v2"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	// A flat-color frame compresses well under either algorithm.
	frame := bytes.Repeat([]byte{0x20, 0x40, 0x80, 0xff}, 16*1024)

	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		compressed, used, err := Compress(frame, tag)
		if err != nil {
			t.Fatalf("%s: Compress: %v", tag, err)
		}
		if used != tag || len(compressed) >= len(frame) {
			t.Fatalf("%s: used %s, %d bytes", tag, used, len(compressed))
		}
		restored, err := Decompress(compressed, used, len(frame))
		if err != nil {
			t.Fatalf("%s: Decompress: %v", tag, err)
		}
		if !bytes.Equal(restored, frame) {
			t.Errorf("%s: round trip mismatch", tag)
		}
	}
}

func TestCompressFallsBackOnNoise(t *testing.T) {
	noise := make([]byte, 4096)
	random := rand.New(rand.NewPCG(1, 2))
	for i := range noise {
		noise[i] = byte(random.UintN(256))
	}
	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		out, used, err := Compress(noise, tag)
		if err != nil {
			t.Fatalf("%s: %v", tag, err)
		}
		if used != CompressionNone || !bytes.Equal(out, noise) {
			t.Errorf("%s: noise compressed with %s", tag, used)
		}
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	frame := bytes.Repeat([]byte("a"), 1000)
	compressed, used, err := Compress(frame, CompressionZstd)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decompress(compressed, used, 999); err == nil {
		t.Error("zstd size mismatch accepted")
	}
	compressed, used, err = Compress(frame, CompressionLZ4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decompress(compressed, used, 0); err == nil {
		t.Error("lz4 zero raw size accepted")
	}
}

func TestParseCompressionTag(t *testing.T) {
	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		parsed, err := ParseCompressionTag(tag.String())
		if err != nil || parsed != tag {
			t.Errorf("ParseCompressionTag(%q) = %v, %v", tag, parsed, err)
		}
	}
	if _, err := ParseCompressionTag("brotli"); err == nil {
		t.Error("brotli accepted")
	}
}
