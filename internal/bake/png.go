package bake

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	dErrors "badgekeeper/pkg/domain-errors"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const (
	pngKeyword = "openbadges"

	// iTXt compression field values per the PNG spec
	itxtUncompressed = 0x00
	itxtCompressed   = 0x01
	itxtMethodZlib   = 0x00
)

// pngChunk is one chunk as read from the stream. crcOK records whether the
// stored CRC matched the chunk's type and data.
type pngChunk struct {
	typ   string
	data  []byte
	crcOK bool
}

// readChunks splits a PNG byte stream into chunks, verifying each CRC.
func readChunks(image []byte) ([]pngChunk, error) {
	if !bytes.HasPrefix(image, pngMagic) {
		return nil, dErrors.New(dErrors.CodeValidation, "not a PNG image")
	}

	var chunks []pngChunk
	rest := image[len(pngMagic):]
	for len(rest) > 0 {
		if len(rest) < 12 {
			return nil, dErrors.New(dErrors.CodeValidation, "truncated PNG chunk header")
		}
		length := binary.BigEndian.Uint32(rest[:4])
		if uint64(length)+12 > uint64(len(rest)) {
			return nil, dErrors.Newf(dErrors.CodeValidation, "PNG chunk length %d exceeds remaining image", length)
		}
		typ := string(rest[4:8])
		data := rest[8 : 8+length]
		stored := binary.BigEndian.Uint32(rest[8+length : 12+length])
		computed := crc32.ChecksumIEEE(rest[4 : 8+length])

		chunks = append(chunks, pngChunk{typ: typ, data: data, crcOK: stored == computed})
		rest = rest[12+length:]

		if typ == "IEND" {
			break
		}
	}
	return chunks, nil
}

// writeChunks reassembles a PNG from its chunks, recomputing every CRC.
func writeChunks(chunks []pngChunk) []byte {
	var buf bytes.Buffer
	buf.Write(pngMagic)
	for _, c := range chunks {
		var header [8]byte
		binary.BigEndian.PutUint32(header[:4], uint32(len(c.data)))
		copy(header[4:], c.typ)
		buf.Write(header[:])
		buf.Write(c.data)

		crc := crc32.NewIEEE()
		crc.Write([]byte(c.typ))
		crc.Write(c.data)
		var trailer [4]byte
		binary.BigEndian.PutUint32(trailer[:], crc.Sum32())
		buf.Write(trailer[:])
	}
	return buf.Bytes()
}

// itxtPayload builds the iTXt chunk body: keyword, compression fields, empty
// language tag and translated keyword, then the credential text.
func itxtPayload(credentialJSON []byte, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(pngKeyword)
	buf.WriteByte(0x00)

	if compress {
		buf.WriteByte(itxtCompressed)
		buf.WriteByte(itxtMethodZlib)
		buf.WriteByte(0x00) // language tag
		buf.WriteByte(0x00) // translated keyword
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(credentialJSON); err != nil {
			return nil, fmt.Errorf("compress credential: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compress credential: %w", err)
		}
		return buf.Bytes(), nil
	}

	buf.WriteByte(itxtUncompressed)
	buf.WriteByte(itxtMethodZlib)
	buf.WriteByte(0x00)
	buf.WriteByte(0x00)
	buf.Write(credentialJSON)
	return buf.Bytes(), nil
}

// itxtKeyword extracts the keyword of an iTXt chunk body, or "".
func itxtKeyword(data []byte) string {
	end := bytes.IndexByte(data, 0x00)
	if end < 0 {
		return ""
	}
	return string(data[:end])
}

// bakePNG inserts the credential iTXt chunk after IHDR, replacing any
// existing openbadges chunk.
func bakePNG(image, credentialJSON []byte, compress bool) ([]byte, error) {
	chunks, err := readChunks(image)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 || chunks[0].typ != "IHDR" {
		return nil, dErrors.New(dErrors.CodeValidation, "PNG does not start with an IHDR chunk")
	}

	payload, err := itxtPayload(credentialJSON, compress)
	if err != nil {
		return nil, err
	}

	out := make([]pngChunk, 0, len(chunks)+1)
	out = append(out, chunks[0])
	out = append(out, pngChunk{typ: "iTXt", data: payload, crcOK: true})
	for _, c := range chunks[1:] {
		if c.typ == "iTXt" && itxtKeyword(c.data) == pngKeyword {
			continue
		}
		out = append(out, c)
	}
	return writeChunks(out), nil
}

// unbakePNG extracts the openbadges iTXt payload. A bad CRC, bad compression
// stream, or malformed chunk body never passes silently: the result reports
// Found=false with the failure detail.
func unbakePNG(image []byte) (*UnbakeResult, error) {
	chunks, err := readChunks(image)
	if err != nil {
		return nil, err
	}

	for _, c := range chunks {
		if c.typ != "iTXt" || itxtKeyword(c.data) != pngKeyword {
			continue
		}
		if !c.crcOK {
			return &UnbakeResult{Detail: "credential chunk checksum mismatch"}, nil
		}
		return decodeITXT(c.data)
	}
	return &UnbakeResult{}, nil
}

func decodeITXT(data []byte) (*UnbakeResult, error) {
	// keyword \0 compressionFlag compressionMethod lang \0 translated \0 text
	rest := data[len(pngKeyword)+1:]
	if len(rest) < 2 {
		return &UnbakeResult{Detail: "credential chunk is truncated"}, nil
	}
	flag, method := rest[0], rest[1]
	rest = rest[2:]

	for i := 0; i < 2; i++ {
		end := bytes.IndexByte(rest, 0x00)
		if end < 0 {
			return &UnbakeResult{Detail: "credential chunk is truncated"}, nil
		}
		rest = rest[end+1:]
	}

	if flag == itxtUncompressed {
		return &UnbakeResult{Found: true, RawData: rest}, nil
	}
	if method != itxtMethodZlib {
		return &UnbakeResult{Detail: fmt.Sprintf("unsupported compression method %d", method)}, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(rest))
	if err != nil {
		return &UnbakeResult{Detail: fmt.Sprintf("decompress credential: %v", err)}, nil
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return &UnbakeResult{Detail: fmt.Sprintf("decompress credential: %v", err)}, nil
	}
	return &UnbakeResult{Found: true, RawData: raw, WasCompressed: true}, nil
}
