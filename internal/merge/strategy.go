package merge

import (
	"fs-bridge-go-server/domain/entity"
	"fs-bridge-go-server/internal/config"
)

// Strategy 插槽合并策略：纯函数，不修改输入，结果确定
type Strategy func(commerce, cms []entity.Component) []entity.Component

// strategies 策略 ID -> 实现，集合封闭
var strategies = map[config.StrategyID]Strategy{
	config.StrategyReplace:  replace,
	config.StrategyFallback: fallback,
	config.StrategyAppend:   appendCms,
	config.StrategyPrepend:  prependCms,
}

// Lookup 根据策略 ID 查找实现
func Lookup(id config.StrategyID) (Strategy, bool) {
	s, ok := strategies[id]
	return s, ok
}

// replace 无条件丢弃商城组件，使用 CMS 组件
func replace(_, cms []entity.Component) []entity.Component {
	return nonNil(entity.CloneComponents(cms))
}

// fallback CMS 组件为空时保留商城组件
func fallback(commerce, cms []entity.Component) []entity.Component {
	if len(cms) > 0 {
		return entity.CloneComponents(cms)
	}
	return nonNil(entity.CloneComponents(commerce))
}

func appendCms(commerce, cms []entity.Component) []entity.Component {
	out := make([]entity.Component, 0, len(commerce)+len(cms))
	out = append(out, entity.CloneComponents(commerce)...)
	return append(out, entity.CloneComponents(cms)...)
}

func prependCms(commerce, cms []entity.Component) []entity.Component {
	out := make([]entity.Component, 0, len(commerce)+len(cms))
	out = append(out, entity.CloneComponents(cms)...)
	return append(out, entity.CloneComponents(commerce)...)
}

func nonNil(components []entity.Component) []entity.Component {
	if components == nil {
		return []entity.Component{}
	}
	return components
}
