package hybrid

import (
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/logging"
	"github.com/rushteam/hybridrec/metrics"
	"github.com/rushteam/hybridrec/preference"
	"github.com/rushteam/hybridrec/similarity"
)

// Model 是混合隐因子模型：点积项 + 近邻修正项 + 平滑项。
//
// 生命周期：New 校验配置；Setup 一次性构建偏好向量与近邻图并分配因子矩阵；
// InitFactors 由训练框架调用；之后每条评分调用 Predict 与 AccumulateGradient。
// 因子矩阵只被训练循环单线程写入。
type Model struct {
	cfg        Config
	aggregator *preference.Aggregator
	builder    *similarity.Builder

	numUsers, numItems int
	user, item         *mat.Dense
	implicit           map[core.Side]*mat.Dense

	prefs  map[core.Side]*preference.Result
	graphs map[core.Side]*similarity.Graph
	shares map[core.Side]float64
	smooth []smoothTerm
}

// smoothTerm 是一项平滑正则：把 side 一侧实体的因子拉向（sign=-1 时推离）其近邻
type smoothTerm struct {
	name     string
	side     core.Side
	graph    *similarity.Graph
	weight   float64
	sign     float64
	implicit bool
}

// New 校验配置并构造模型，配置越界时返回 INVALID_CONFIG 错误。
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	agg, err := preference.NewAggregator(cfg.Preference)
	if err != nil {
		return nil, err
	}
	builder, err := similarity.NewBuilder(cfg.Similarity)
	if err != nil {
		return nil, err
	}
	m := &Model{
		cfg:        cfg,
		aggregator: agg,
		builder:    builder,
		implicit:   make(map[core.Side]*mat.Dense),
		prefs:      make(map[core.Side]*preference.Result),
		graphs:     make(map[core.Side]*similarity.Graph),
		shares:     make(map[core.Side]float64),
	}
	for side, share := range cfg.shares() {
		if share > 0 {
			m.shares[side] = share
		}
	}
	classSmoothing := cfg.NegWeight > 0 || cfg.PosWeight > 0
	if classSmoothing && agg.Classifier().NumClasses() < 2 {
		return nil, core.NewConfigError(core.ModuleHybrid, "pos_weight/neg_weight need at least two rating classes")
	}
	return m, nil
}

// Config 返回应用默认值后的配置
func (m *Model) Config() Config { return m.cfg }

// WithCandidates 替换近邻图的候选对生成方式，需在 Setup 之前调用。
func (m *Model) WithCandidates(name string, fn func(*similarity.Input) similarity.CandidateSource) {
	m.builder = m.builder.WithCandidates(name, fn)
}

// Setup 由评分与辅助信号构建偏好向量、近邻图，并分配因子矩阵（全零）。
func (m *Model) Setup(ratings core.RatingStore, aux core.AuxiliarySource) error {
	m.numUsers, m.numItems = ratings.NumRows(), ratings.NumColumns()
	if m.numUsers == 0 || m.numItems == 0 {
		return core.NewDomainError(core.ModuleHybrid, core.ErrorCodeInvalidInput, "hybrid: empty rating store")
	}
	log := logging.With("hybrid")

	sides := make(map[core.Side]bool)
	for side := range m.shares {
		sides[side] = true
	}
	if m.cfg.DisWeight > 0 || m.cfg.PosWeight > 0 || m.cfg.NegWeight > 0 {
		sides[m.cfg.SmoothSide] = true
	}
	for _, side := range []core.Side{core.SideUser, core.SideItem} {
		if !sides[side] {
			continue
		}
		res := m.aggregator.Aggregate(ratings, aux, side)
		m.prefs[side] = res
		graph := m.builder.Build(similarity.FromResult(res, m.cfg.Similarity.IncludeNeutral))
		m.graphs[side] = graph
		observeGraph(side, graph)
		metrics.PreferenceEntities.WithLabelValues(string(side)).Set(float64(len(res.Profiles)))
		log.Info().
			Str("side", string(side)).
			Int("entities", res.NumEntities).
			Int("with_preference", len(res.Profiles)).
			Int("edges", graph.Edges()).
			Msg("neighbor graph ready")
	}

	m.smooth = nil
	side := m.cfg.SmoothSide
	if m.cfg.DisWeight > 0 {
		m.smooth = append(m.smooth, smoothTerm{
			name: "dis", side: side, graph: m.graphs[side], weight: m.cfg.DisWeight, sign: 1, implicit: m.cfg.SmoothImplicit,
		})
	}
	if m.cfg.PosWeight > 0 {
		res := m.prefs[side]
		g := m.builder.Build(similarity.FromClasses(res, res.Positive()))
		m.smooth = append(m.smooth, smoothTerm{
			name: "pos", side: side, graph: g, weight: m.cfg.PosWeight, sign: 1, implicit: m.cfg.SmoothImplicit,
		})
	}
	if m.cfg.NegWeight > 0 {
		res := m.prefs[side]
		neg, _ := res.Negative()
		g := m.builder.Build(similarity.FromClasses(res, neg))
		sign := 1.0
		if m.cfg.RepelNegative {
			sign = -1
		}
		m.smooth = append(m.smooth, smoothTerm{
			name: "neg", side: side, graph: g, weight: m.cfg.NegWeight, sign: sign, implicit: m.cfg.SmoothImplicit,
		})
	}

	k := m.cfg.NumFactors
	m.user = mat.NewDense(m.numUsers, k, nil)
	m.item = mat.NewDense(m.numItems, k, nil)
	m.implicit = make(map[core.Side]*mat.Dense)
	if m.cfg.Implicit {
		m.implicit[core.SideUser] = mat.NewDense(m.numUsers, k, nil)
		m.implicit[core.SideItem] = mat.NewDense(m.numItems, k, nil)
	}
	log.Info().
		Int("users", m.numUsers).
		Int("items", m.numItems).
		Int("factors", k).
		Float64("explicit_weight", m.cfg.ExplicitWeight).
		Int("smooth_terms", len(m.smooth)).
		Msg("model setup finished")
	return nil
}

func observeGraph(side core.Side, g *similarity.Graph) {
	h := metrics.NeighborListSize.WithLabelValues(string(side))
	for i := 0; i < g.Len(); i++ {
		h.Observe(float64(len(g.Neighbors(i))))
	}
}

// InitFactors 用 init 依次填充所有因子矩阵（用户、物品、隐式）。
func (m *Model) InitFactors(init func() float64) {
	fill := func(d *mat.Dense) {
		if d == nil {
			return
		}
		raw := d.RawMatrix()
		for r := 0; r < raw.Rows; r++ {
			row := raw.Data[r*raw.Stride : r*raw.Stride+raw.Cols]
			for c := range row {
				row[c] = init()
			}
		}
	}
	fill(m.user)
	fill(m.item)
	fill(m.implicit[core.SideUser])
	fill(m.implicit[core.SideItem])
}

// Factors 返回用户与物品因子矩阵（共享底层数据）
func (m *Model) Factors() (user, item *mat.Dense) { return m.user, m.item }

// ImplicitFactors 返回 side 一侧的隐式因子矩阵，未启用时为 nil
func (m *Model) ImplicitFactors(side core.Side) *mat.Dense { return m.implicit[side] }

// Graph 返回 side 一侧的主近邻图，未构建时为 nil
func (m *Model) Graph(side core.Side) *similarity.Graph { return m.graphs[side] }

// Preferences 返回 side 一侧的偏好聚合结果，未构建时为 nil
func (m *Model) Preferences(side core.Side) *preference.Result { return m.prefs[side] }

// NumUsers 返回用户数
func (m *Model) NumUsers() int { return m.numUsers }

// NumItems 返回物品数
func (m *Model) NumItems() int { return m.numItems }
