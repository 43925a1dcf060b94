package seedstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pslhy/DAFL/internal/scheduler"
)

// Descriptor is the parsed form of a seed file name (spec.md section 6,
// "id:NNNNNN,src:PARENT,op:OP,pos:POS").
type Descriptor struct {
	ID          scheduler.SeedID
	ParentID    scheduler.SeedID
	MutationOp  string
	MutationPos int
}

// FileName formats a seed's descriptor into its on-disk file name. A root
// seed (no parent) uses "orig" for src, matching the original fuzzer's seed
// naming for initial corpus entries.
func FileName(d Descriptor) string {
	src := "orig"
	if d.ParentID != scheduler.NoSeed {
		src = fmt.Sprintf("%06d", int32(d.ParentID))
	}

	return fmt.Sprintf("id:%06d,src:%s,op:%s,pos:%d", int32(d.ID), src, d.MutationOp, d.MutationPos)
}

// ParseFileName recovers a Descriptor from a seed file name produced by
// FileName. Used by the `dafl seeds` listing, which reads the seed
// directory's file names directly.
func ParseFileName(name string) (Descriptor, error) {
	fields := strings.Split(name, ",")

	var d Descriptor

	d.ParentID = scheduler.NoSeed

	seen := make(map[string]bool, len(fields))

	for _, field := range fields {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			return Descriptor{}, fmt.Errorf("seed file name %q: %w", name, errMalformedName)
		}

		seen[key] = true

		switch key {
		case "id":
			id, err := strconv.Atoi(value)
			if err != nil {
				return Descriptor{}, fmt.Errorf("seed file name %q: bad id: %w", name, err)
			}

			d.ID = scheduler.SeedID(id)
		case "src":
			if value != "orig" {
				parent, err := strconv.Atoi(value)
				if err != nil {
					return Descriptor{}, fmt.Errorf("seed file name %q: bad src: %w", name, err)
				}

				d.ParentID = scheduler.SeedID(parent)
			}
		case "op":
			d.MutationOp = value
		case "pos":
			pos, err := strconv.Atoi(value)
			if err != nil {
				return Descriptor{}, fmt.Errorf("seed file name %q: bad pos: %w", name, err)
			}

			d.MutationPos = pos
		}
	}

	if !seen["id"] || !seen["src"] || !seen["op"] || !seen["pos"] {
		return Descriptor{}, fmt.Errorf("seed file name %q: %w", name, errMalformedName)
	}

	return d, nil
}
