package similarity

import (
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/logging"
	"github.com/rushteam/hybridrec/metrics"
)

// Strategy 决定哪些实体对会被计算相似度
type Strategy string

const (
	// BruteForce 枚举所有 i < j，O(N²·T)，N 在数千以内时可用
	BruteForce Strategy = "brute_force"
	// InvertedIndex 只枚举至少共享一个 tag 的实体对，结果与 BruteForce 一致
	InvertedIndex Strategy = "inverted_index"
)

// Config 是建图配置
type Config struct {
	Metric   Metric   `yaml:"metric" koanf:"metric" validate:"omitempty,oneof=cosine full_cosine dice pearson"`
	Strategy Strategy `yaml:"strategy" koanf:"strategy" validate:"omitempty,oneof=brute_force inverted_index"`
	TopK     int      `yaml:"top_k" koanf:"top_k" validate:"gte=0"`
	// Workers 为并行计算行的 goroutine 数，<=0 时使用 GOMAXPROCS
	Workers int `yaml:"workers" koanf:"workers" validate:"gte=0"`
	// IncludeNeutral 三分类时把中间类别也作为一组参与平均
	IncludeNeutral bool `yaml:"include_neutral" koanf:"include_neutral"`
}

// DefaultConfig 返回 cosine + brute force + top 20
func DefaultConfig() Config {
	return Config{Metric: Cosine, Strategy: BruteForce, TopK: DefaultTopK}
}

// CandidateSource 为实体 i 给出需要计算的 j（j > i，升序）。
type CandidateSource interface {
	Candidates(i int) []int
}

// Builder 构建近邻图
type Builder struct {
	cfg       Config
	newSource func(*Input) CandidateSource
}

// NewBuilder 校验配置并应用默认值。
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.Metric == "" {
		cfg.Metric = Cosine
	}
	if cfg.Strategy == "" {
		cfg.Strategy = BruteForce
	}
	if cfg.TopK < 0 {
		return nil, core.NewConfigError(core.ModuleSimilarity, "top_k must not be negative, got %d", cfg.TopK)
	}
	if cfg.TopK == 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if !cfg.Metric.Valid() {
		return nil, core.NewConfigError(core.ModuleSimilarity, "unknown metric %q", cfg.Metric)
	}
	b := &Builder{cfg: cfg}
	switch cfg.Strategy {
	case BruteForce:
		b.newSource = newBruteForce
	case InvertedIndex:
		b.newSource = newInvertedIndex
	default:
		return nil, core.NewConfigError(core.ModuleSimilarity, "unknown strategy %q", cfg.Strategy)
	}
	return b, nil
}

// WithCandidates 替换候选对生成方式（如分桶、近似检索），下游契约不变。
func (b *Builder) WithCandidates(name string, fn func(*Input) CandidateSource) *Builder {
	nb := *b
	nb.cfg.Strategy = Strategy(name)
	nb.newSource = fn
	return &nb
}

// Config 返回应用默认值后的配置
func (b *Builder) Config() Config { return b.cfg }

type rowResult struct {
	edges  []Neighbor
	counts map[string]int
}

// Build 计算所有实体对的相似度并保留每个实体的 top-K 近邻。
//
// 每一行只计算 j > i 的上三角，行之间无共享写，可并行；
// 之后按 i 升序对称展开，排序后截断。
func (b *Builder) Build(in *Input) *Graph {
	start := time.Now()
	in.prepare()
	src := b.newSource(in)

	rows := make([]rowResult, in.N)
	var g errgroup.Group
	g.SetLimit(b.cfg.Workers)
	for _, i := range in.entities() {
		g.Go(func() error {
			rr := rowResult{counts: make(map[string]int)}
			for _, j := range src.Candidates(i) {
				s, result := pairScore(b.cfg.Metric, in, i, j)
				rr.counts[result]++
				if result == metrics.PairKept {
					rr.edges = append(rr.edges, Neighbor{Index: j, Weight: s})
				}
			}
			rows[i] = rr
			return nil
		})
	}
	_ = g.Wait()

	lists := make([][]Neighbor, in.N)
	counts := make(map[string]int)
	for i, rr := range rows {
		for result, n := range rr.counts {
			counts[result] += n
		}
		for _, e := range rr.edges {
			lists[i] = append(lists[i], e)
			lists[e.Index] = append(lists[e.Index], Neighbor{Index: i, Weight: e.Weight})
		}
	}
	graph := NewGraph(lists, b.cfg.TopK)

	for result, n := range counts {
		metrics.SimilarityPairs.WithLabelValues(result).Add(float64(n))
	}
	elapsed := time.Since(start)
	metrics.NeighborGraphBuildSeconds.WithLabelValues(string(b.cfg.Strategy)).Observe(elapsed.Seconds())
	log := logging.With("similarity")
	log.Debug().
		Str("metric", string(b.cfg.Metric)).
		Str("strategy", string(b.cfg.Strategy)).
		Int("entities", in.N).
		Int("kept_pairs", counts[metrics.PairKept]).
		Int("edges", graph.Edges()).
		Dur("elapsed", elapsed).
		Msg("neighbor graph built")
	return graph
}

// BuildNeighborGraph 用给定配置构建近邻图。
func BuildNeighborGraph(in *Input, cfg Config) (*Graph, error) {
	b, err := NewBuilder(cfg)
	if err != nil {
		return nil, err
	}
	return b.Build(in), nil
}

type bruteForce struct {
	ids []int
}

func newBruteForce(in *Input) CandidateSource {
	return &bruteForce{ids: in.entities()}
}

func (s *bruteForce) Candidates(i int) []int {
	k := sort.SearchInts(s.ids, i+1)
	return s.ids[k:]
}

type invertedIndex struct {
	in       *Input
	postings []map[string][]int
}

// newInvertedIndex 按组建立 tag -> 实体倒排表（实体升序）
func newInvertedIndex(in *Input) CandidateSource {
	idx := &invertedIndex{in: in, postings: make([]map[string][]int, len(in.Groups))}
	ids := in.entities()
	for g, group := range in.Groups {
		p := make(map[string][]int)
		for _, e := range ids {
			for _, t := range group[e] {
				p[t] = append(p[t], e)
			}
		}
		idx.postings[g] = p
	}
	return idx
}

func (s *invertedIndex) Candidates(i int) []int {
	seen := make(map[int]struct{})
	var out []int
	for g, group := range s.in.Groups {
		for _, t := range group[i] {
			list := s.postings[g][t]
			for _, j := range list[sort.SearchInts(list, i+1):] {
				if _, ok := seen[j]; ok {
					continue
				}
				seen[j] = struct{}{}
				out = append(out, j)
			}
		}
	}
	sort.Ints(out)
	return out
}
