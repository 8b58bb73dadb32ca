package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/logging"
)

// LoadStats 记录一次加载中读取与跳过的行数
type LoadStats struct {
	Lines   int
	Loaded  int
	Skipped int
}

// Dataset 把评分、标签与两侧的 ID 映射绑在一起。
type Dataset struct {
	Users   *IDMap
	Items   *IDMap
	Ratings *RatingMatrix
	Tags    *TagSource
}

// TagLoadOptions 控制标签行 "user item tag" 的归属
type TagLoadOptions struct {
	// UserTags 把标签同时记到用户的实体级标签上
	UserTags bool
	// ItemTags 把标签同时记到物品的实体级标签上
	ItemTags bool
	// AllowNew 允许出现评分文件里没有的用户/物品；否则这些行被跳过
	AllowNew bool
}

// splitFields 按空格、制表符、逗号切分
func splitFields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

func scanLines(r io.Reader, fn func(lineNo int, fields []string) bool) (LoadStats, error) {
	var stats LoadStats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		stats.Lines++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if fn(stats.Lines, splitFields(line)) {
			stats.Loaded++
		} else {
			stats.Skipped++
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}
	return stats, nil
}

// LoadRatings 读取 "user item rating [timestamp]" 格式的评分行。
// 字段不足、评分非数字或非正数的行被跳过，不会返回错误。
func LoadRatings(r io.Reader, users, items *IDMap) (*RatingMatrix, LoadStats, error) {
	log := logging.With("dataset")
	b := NewRatingBuilder()
	stats, err := scanLines(r, func(lineNo int, f []string) bool {
		if len(f) < 3 {
			log.Debug().Int("line", lineNo).Msg("skip rating line: too few fields")
			return false
		}
		v, err := strconv.ParseFloat(f[2], 64)
		if err != nil || v <= 0 {
			log.Debug().Int("line", lineNo).Str("rating", f[2]).Msg("skip rating line: bad rating")
			return false
		}
		return b.Set(users.Add(f[0]), items.Add(f[1]), v) == nil
	})
	if err != nil {
		return nil, stats, err
	}
	return b.Build(users.Len(), items.Len()), stats, nil
}

// LoadTags 读取 "user item tag [timestamp]" 格式的标签行，标签总是附着在 (user, item) 上。
func LoadTags(r io.Reader, users, items *IDMap, opts TagLoadOptions) (*TagSource, LoadStats, error) {
	log := logging.With("dataset")
	src := NewTagSource()
	resolve := func(m *IDMap, raw string) (int, bool) {
		if opts.AllowNew {
			return m.Add(raw), true
		}
		return m.Index(raw)
	}
	stats, err := scanLines(r, func(lineNo int, f []string) bool {
		if len(f) < 3 {
			log.Debug().Int("line", lineNo).Msg("skip tag line: too few fields")
			return false
		}
		u, ok := resolve(users, f[0])
		if !ok {
			return false
		}
		i, ok := resolve(items, f[1])
		if !ok {
			return false
		}
		tag := f[2]
		src.AddPairTag(u, i, tag)
		if opts.UserTags {
			src.AddEntityTag(core.SideUser, u, tag)
		}
		if opts.ItemTags {
			src.AddEntityTag(core.SideItem, i, tag)
		}
		return true
	})
	if err != nil {
		return nil, stats, err
	}
	return src, stats, nil
}

// LoadFeatures 读取 "entity feature [feature...]" 格式的实体特征行（如物品类型）。
func LoadFeatures(r io.Reader, side core.Side, ids *IDMap, src *TagSource) (LoadStats, error) {
	return scanLines(r, func(_ int, f []string) bool {
		if len(f) < 2 {
			return false
		}
		idx, ok := ids.Index(f[0])
		if !ok {
			return false
		}
		for _, feat := range f[1:] {
			src.AddEntityTag(side, idx, feat)
		}
		return true
	})
}

// Paths 指定数据文件位置，TagsPath / FeaturesPath 可为空
type Paths struct {
	Ratings      string
	Tags         string
	ItemFeatures string
}

// Load 从文件加载完整数据集。
func Load(p Paths, opts TagLoadOptions) (*Dataset, error) {
	log := logging.With("dataset")
	ds := &Dataset{Users: NewIDMap(), Items: NewIDMap()}

	f, err := os.Open(p.Ratings)
	if err != nil {
		return nil, fmt.Errorf("open ratings: %w", err)
	}
	defer f.Close()
	ratings, stats, err := LoadRatings(f, ds.Users, ds.Items)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	log.Info().Str("file", p.Ratings).Int("loaded", stats.Loaded).Int("skipped", stats.Skipped).
		Int("users", ds.Users.Len()).Int("items", ds.Items.Len()).Msg("ratings loaded")

	ds.Tags = NewTagSource()
	if p.Tags != "" {
		tf, err := os.Open(p.Tags)
		if err != nil {
			return nil, fmt.Errorf("open tags: %w", err)
		}
		defer tf.Close()
		tags, stats, err := LoadTags(tf, ds.Users, ds.Items, opts)
		if err != nil {
			return nil, fmt.Errorf("load tags: %w", err)
		}
		ds.Tags = tags
		log.Info().Str("file", p.Tags).Int("loaded", stats.Loaded).Int("skipped", stats.Skipped).Msg("tags loaded")
	}
	if p.ItemFeatures != "" {
		ff, err := os.Open(p.ItemFeatures)
		if err != nil {
			return nil, fmt.Errorf("open item features: %w", err)
		}
		defer ff.Close()
		stats, err := LoadFeatures(ff, core.SideItem, ds.Items, ds.Tags)
		if err != nil {
			return nil, fmt.Errorf("load item features: %w", err)
		}
		log.Info().Str("file", p.ItemFeatures).Int("loaded", stats.Loaded).Int("skipped", stats.Skipped).Msg("item features loaded")
	}

	// AllowNew 可能在加载标签时扩展了 ID 映射，评分矩阵需覆盖全部实体
	ds.Ratings = rebuild(ratings, ds.Users.Len(), ds.Items.Len())
	return ds, nil
}

func rebuild(m *RatingMatrix, rows, cols int) *RatingMatrix {
	if m.NumRows() >= rows && m.NumColumns() >= cols {
		return m
	}
	b := NewRatingBuilder()
	m.ForEachObserved(func(r, c int, v float64) { _ = b.Set(r, c, v) })
	return b.Build(rows, cols)
}
