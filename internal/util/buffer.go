// Package util pools the byte buffers used by the record codec.
package util

import (
	"bytes"
	"sync"
)

var bytesBuffer = sync.Pool{
	New: func() interface{} { return &bytes.Buffer{} },
}

// GetBytesBuffer returns an empty buffer. Callers Reset it before putting it
// back.
func GetBytesBuffer() *bytes.Buffer {
	return bytesBuffer.Get().(*bytes.Buffer)
}

func PutBytesBuffer(p *bytes.Buffer) {
	bytesBuffer.Put(p)
}
