package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/vbauerster/mpb/v7/decor"
)

// byteSize is a flag value accepting sizes like 512KB, 64MB or 1GiB.
// Units are powers of 1024.
type byteSize int64

var _ pflag.Value = (*byteSize)(nil)

var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"gib", 1 << 30},
	{"mib", 1 << 20},
	{"kib", 1 << 10},
	{"gb", 1 << 30},
	{"mb", 1 << 20},
	{"kb", 1 << 10},
	{"g", 1 << 30},
	{"m", 1 << 20},
	{"k", 1 << 10},
	{"b", 1},
}

func (s *byteSize) String() string {
	return fmt.Sprintf("% .0f", decor.SizeB1024(*s))
}

func (s *byteSize) Set(v string) error {
	n, err := parseByteSize(v)
	if err != nil {
		return err
	}
	*s = byteSize(n)
	return nil
}

func (s *byteSize) Type() string { return "size" }

func parseByteSize(v string) (int64, error) {
	str := strings.ToLower(strings.TrimSpace(v))
	mult := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(str, u.suffix) {
			str = strings.TrimSpace(strings.TrimSuffix(str, u.suffix))
			mult = u.mult
			break
		}
	}

	n, err := strconv.ParseFloat(str, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", v)
	}
	total := n * float64(mult)
	if total < 1 {
		return 0, fmt.Errorf("invalid size %q", v)
	}
	if total >= math.MaxInt64 {
		return 0, fmt.Errorf("size %q too large", v)
	}
	return int64(total), nil
}
