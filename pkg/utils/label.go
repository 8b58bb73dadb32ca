package utils

// Label 是召回结果上的可解释标签。
// Value 与 Source 的语义由调用方决定；这里只提供合并规则。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // hybrid / neighbor / request ...
}

// 召回链路使用的标签 key
const (
	LabelRecallSource = "recall_source"
	LabelVariant      = "variant"
	LabelNeighbor     = "neighbor"
)

// NewLabel 创建 Label
func NewLabel(value, source string) Label {
	return Label{Value: value, Source: source}
}

// MergeLabel 合并同名 Label，保留历史：
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "", incoming.Source == existing.Source:
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
