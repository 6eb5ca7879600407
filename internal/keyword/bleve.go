package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/kotae/internal/models"
)

// batchSize bounds the number of chunks written per bleve batch.
const batchSize = 256

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

type chunkDoc struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Stem   string `json:"stem"`
}

// NewBleveIndex creates or opens a Bleve index at path.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase + tokenize, no stemming, so literal terms match as typed
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("stem", textFieldMapping)
	docMapping.AddFieldMappingsAt("source", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds chunks to the index in batches.
func (b *BleveIndex) Index(ctx context.Context, chunks []models.Chunk) error {
	for start := 0; start < len(chunks); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := b.index.NewBatch()
		for _, c := range chunks[start:min(start+batchSize, len(chunks))] {
			doc := chunkDoc{Text: c.Text, Source: c.SourcePath, Stem: c.SourceStem}
			if err := batch.Index(c.ID, doc); err != nil {
				return fmt.Errorf("failed to index chunk %s: %w", c.ID, err)
			}
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("bleve batch failed: %w", err)
		}
	}
	return nil
}

// Search runs a match query over chunk text and returns up to limit results.
// When opts.StemBoost > 1, text and stem are queried separately and summed.
func (b *BleveIndex) Search(ctx context.Context, terms string, limit int, opts *SearchOptions) ([]*Result, error) {
	if limit <= 0 {
		limit = 10
	}
	stemBoost := 1.0
	fuzzy := false
	fuzziness := 1
	if opts != nil {
		if opts.StemBoost > 0 {
			stemBoost = opts.StemBoost
		}
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	if stemBoost <= 1.0 {
		return b.run(ctx, b.buildQuery(terms, "", fuzzy, fuzziness), limit, 1.0)
	}

	reqSize := max(limit*2, 50)
	textHits, err := b.run(ctx, b.buildQuery(terms, "text", fuzzy, fuzziness), reqSize, 1.0)
	if err != nil {
		return nil, err
	}
	stemHits, err := b.run(ctx, b.buildQuery(terms, "stem", fuzzy, fuzziness), reqSize, stemBoost)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(textHits)+len(stemHits))
	for _, h := range textHits {
		scores[h.ID] += h.Score
	}
	for _, h := range stemHits {
		scores[h.ID] += h.Score
	}
	merged := make([]*Result, 0, len(scores))
	for id, s := range scores {
		merged = append(merged, &Result{ID: id, Score: s})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (b *BleveIndex) run(ctx context.Context, q blevequery.Query, size int, boost float64) ([]*Result, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score * boost}
	}
	return out, nil
}

// buildQuery returns a match query, or a disjunction of fuzzy term queries when fuzzy.
// An empty field searches all fields.
func (b *BleveIndex) buildQuery(terms, field string, fuzzy bool, fuzziness int) blevequery.Query {
	words := tokenize(terms)
	if !fuzzy || len(words) == 0 {
		mq := bleve.NewMatchQuery(terms)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(words))
	for _, w := range words {
		fq := bleve.NewFuzzyQuery(w)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// Count returns the number of indexed chunks.
func (b *BleveIndex) Count() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
