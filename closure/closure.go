// Copyright (C) 2025 Kimedes Artificial Intelligence.
// See LICENSE for copying information.

// Package closure enumerates phase closure triplets from the registered
// pairs of a partition. A triplet (A < B < C) is usable for quality control
// when short(A,B), short(B,C) and long(A,C) all exist.
package closure

import (
	"sort"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"

	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/repository"
	"github.com/Kimedes-Artificial-Intelligence/goshawk-ETL-sub000/sar"
)

var (
	// Error is a closure error.
	Error = errs.Class("closure")

	mon = monkit.Package()
)

// Triplet is one closed loop of three registered artifacts.
type Triplet struct {
	A sar.Date `json:"date_a"`
	B sar.Date `json:"date_b"`
	C sar.Date `json:"date_c"`

	ShortAB repository.PairRecord `json:"short_ab"`
	ShortBC repository.PairRecord `json:"short_bc"`
	LongAC  repository.PairRecord `json:"long_ac"`
}

// Find returns all closure triplets of a partition, sorted by (A, B, C).
//
// The join is anchored on the short pairs: for every short(A,B) each
// short(B,C) is tried and kept when long(A,C) is registered too. Short
// pairs only ever chain forward, so there is no combinatorial blow-up.
func Find(md *repository.Metadata) []Triplet {
	shortByMaster := make(map[sar.Date][]repository.PairRecord)
	longs := make(map[sar.PairKey]repository.PairRecord)
	for _, rec := range md.Pairs {
		switch rec.Key.Kind {
		case sar.ShortPair:
			shortByMaster[rec.Key.Master] = append(shortByMaster[rec.Key.Master], rec)
		case sar.LongPair:
			longs[rec.Key] = rec
		}
	}

	var triplets []Triplet
	for _, ab := range md.Pairs {
		if ab.Key.Kind != sar.ShortPair {
			continue
		}
		for _, bc := range shortByMaster[ab.Key.Slave] {
			acKey := sar.PairKey{Master: ab.Key.Master, Slave: bc.Key.Slave, Kind: sar.LongPair}
			ac, ok := longs[acKey]
			if !ok {
				continue
			}
			triplets = append(triplets, Triplet{
				A:       ab.Key.Master,
				B:       ab.Key.Slave,
				C:       bc.Key.Slave,
				ShortAB: ab,
				ShortBC: bc,
				LongAC:  ac,
			})
		}
	}

	sort.Slice(triplets, func(i, k int) bool {
		if triplets[i].A != triplets[k].A {
			return triplets[i].A.Before(triplets[k].A)
		}
		if triplets[i].B != triplets[k].B {
			return triplets[i].B.Before(triplets[k].B)
		}
		return triplets[i].C.Before(triplets[k].C)
	})
	return triplets
}
