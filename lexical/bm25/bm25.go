// Package bm25 provides a frozen in-memory BM25 inverted index over the
// string fields of a document batch.
//
// Documents are added once through a Builder and assigned sequential
// ordinals; the built Index is immutable and safe for concurrent readers.
// Every field token is indexed twice, under its field name and under the
// catch-all field, so bare query terms match in any field.
//
// Scoring uses the standard BM25 parameters k1=1.2, b=0.75.
package bm25

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/geoshard/geoshard/lexical"
)

const (
	k1 = 1.2
	b  = 0.75
)

// catchAll is the field name postings for unscoped terms live under.
const catchAll = ""

type posting struct {
	doc   uint32
	count uint32
}

// Builder accumulates documents before freezing them into an Index.
type Builder struct {
	inverted map[string]map[string][]posting
	lengths  []uint32
	total    int64
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		inverted: make(map[string]map[string][]posting),
	}
}

// Add indexes the string fields of the next document and returns its
// ordinal. Ordinals are assigned sequentially from zero in call order.
func (b *Builder) Add(fields map[string]string) uint32 {
	doc := uint32(len(b.lengths))

	var length uint32
	for field, text := range fields {
		tf := make(map[string]uint32)
		for _, tok := range lexical.Tokenize(text) {
			tf[tok]++
			length++
		}
		for tok, count := range tf {
			b.append(field, tok, doc, count)
			b.append(catchAll, tok, doc, count)
		}
	}

	b.lengths = append(b.lengths, length)
	b.total += int64(length)
	return doc
}

func (b *Builder) append(field, tok string, doc uint32, count uint32) {
	terms, ok := b.inverted[field]
	if !ok {
		terms = make(map[string][]posting)
		b.inverted[field] = terms
	}
	postings := terms[tok]
	// A token repeated across fields of one document folds into the
	// catch-all posting it already has.
	if n := len(postings); n > 0 && postings[n-1].doc == doc {
		postings[n-1].count += count
		return
	}
	terms[tok] = append(postings, posting{doc: doc, count: count})
}

// Build freezes the Builder into an immutable Index. The Builder must not be
// used afterwards.
func (b *Builder) Build() *Index {
	idx := &Index{
		inverted: b.inverted,
		bitmaps:  make(map[string]map[string]*roaring.Bitmap, len(b.inverted)),
		lengths:  b.lengths,
		count:    len(b.lengths),
	}
	if idx.count > 0 {
		idx.avgLen = float64(b.total) / float64(idx.count)
	}

	for field, terms := range b.inverted {
		byTerm := make(map[string]*roaring.Bitmap, len(terms))
		for tok, postings := range terms {
			bm := roaring.New()
			for _, p := range postings {
				bm.Add(p.doc)
			}
			byTerm[tok] = bm
		}
		idx.bitmaps[field] = byTerm
	}

	b.inverted = nil
	b.lengths = nil
	return idx
}

// Index is a frozen BM25 inverted index. Safe for concurrent use.
type Index struct {
	inverted map[string]map[string][]posting
	bitmaps  map[string]map[string]*roaring.Bitmap
	lengths  []uint32
	count    int
	avgLen   float64
}

// Len returns the number of indexed documents.
func (x *Index) Len() int { return x.count }

// Candidates returns the set of document ordinals matching every query
// term. Match-all queries return nil, meaning no restriction. A non-nil
// empty bitmap means no document matches.
func (x *Index) Candidates(q lexical.Query) *roaring.Bitmap {
	if q.MatchAll() {
		return nil
	}

	var out *roaring.Bitmap
	for _, t := range q.Terms() {
		bm := x.bitmap(t)
		if bm == nil {
			return roaring.New()
		}
		if out == nil {
			out = bm.Clone()
			continue
		}
		out.And(bm)
		if out.IsEmpty() {
			return out
		}
	}
	if out == nil {
		return roaring.New()
	}
	return out
}

// Scores returns BM25 relevance per matching document ordinal. Only
// documents matching every term score. Match-all queries return nil;
// callers treat them as an unrestricted constant-score match.
func (x *Index) Scores(q lexical.Query) map[uint32]float64 {
	if q.MatchAll() {
		return nil
	}

	scores := make(map[uint32]float64)
	if x.count == 0 {
		return scores
	}

	candidates := x.Candidates(q)
	if candidates.IsEmpty() {
		return scores
	}

	for _, t := range q.Terms() {
		postings := x.postings(t)
		idf := x.idf(len(postings))
		for _, p := range postings {
			if !candidates.Contains(p.doc) {
				continue
			}
			tf := float64(p.count)
			docLen := float64(x.lengths[p.doc])
			num := tf * (k1 + 1)
			denom := tf + k1*(1-b+b*(docLen/x.avgLen))
			scores[p.doc] += idf * (num / denom)
		}
	}

	return scores
}

// idf computes log(1 + (N - n + 0.5) / (n + 0.5)).
func (x *Index) idf(df int) float64 {
	n := float64(df)
	return math.Log(1 + (float64(x.count)-n+0.5)/(n+0.5))
}

func (x *Index) postings(t lexical.Term) []posting {
	terms, ok := x.inverted[t.Field]
	if !ok {
		return nil
	}
	return terms[t.Text]
}

func (x *Index) bitmap(t lexical.Term) *roaring.Bitmap {
	terms, ok := x.bitmaps[t.Field]
	if !ok {
		return nil
	}
	return terms[t.Text]
}
