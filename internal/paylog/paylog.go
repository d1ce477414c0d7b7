// Package paylog reads the payment-confirmation log produced by the mailbox
// scanner. Only the reservation references matter here; everything else in the
// file belongs to reporting.
package paylog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

type PaidSet map[string]bool

func (p PaidSet) Contains(ref string) bool { return p[ref] }

// Load reads payments_log.csv. A missing file is an empty set, not an error:
// the scanner may simply not have run yet.
func Load(path string) (PaidSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return PaidSet{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func Read(r io.Reader) (PaidSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return PaidSet{}, nil
	}
	if err != nil {
		return nil, err
	}

	refCol := -1
	for i, h := range header {
		if h == "reservation_code" || h == "ref" {
			refCol = i
			break
		}
	}
	if refCol < 0 {
		return nil, fmt.Errorf("payments log: no reservation_code column")
	}

	set := PaidSet{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if refCol >= len(rec) || rec[refCol] == "" {
			continue
		}
		set[rec[refCol]] = true
	}
	return set, nil
}
