package utils

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"

	"github.com/speps/go-hashids/v2"
)

func PanicTrace(err interface{}) string {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "%v\n", err)
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fmt.Fprintf(buf, "%s:%d (0x%x)\n", file, line, pc)
	}
	return buf.String()
}

// HashID 对外隐藏自增 id
type HashID struct {
	h *hashids.HashID
}

func NewHashID(salt string) (*HashID, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 12
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, err
	}
	return &HashID{h: h}, nil
}

func (h *HashID) Encode(id uint64) string {
	e, _ := h.h.EncodeInt64([]int64{int64(id)})
	return e
}

func (h *HashID) Decode(s string) (uint64, error) {
	ids, err := h.h.DecodeInt64WithError(s)
	if err != nil {
		return 0, err
	}
	if len(ids) != 1 || ids[0] <= 0 {
		return 0, errors.New("invalid hash id")
	}
	return uint64(ids[0]), nil
}
