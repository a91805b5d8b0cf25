package service

import (
	"fmt"
	"strconv"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
)

// ItemGroup 一组将进入同一张工单的订单明细
type ItemGroup struct {
	Key   string
	Items []entity.OrderItem
}

// GroupItems 按部门配置的分组策略划分明细。
// 超出部门 MaxGroupSize（默认100）的组按原顺序切分为连续子组，组键加序号后缀
func GroupItems(items []entity.OrderItem, dept *entity.Department) []ItemGroup {
	strategy := dept.GroupingStrategy
	if strategy == entity.GroupingByProperty && dept.GroupingPropertyID == nil {
		strategy = entity.GroupingNone
	}

	var groups []ItemGroup
	switch strategy {
	case entity.GroupingByOrder:
		groups = []ItemGroup{{Key: "order", Items: items}}

	case entity.GroupingByProduct:
		index := map[int64]int{}
		for _, item := range items {
			key := item.ProductID
			if i, ok := index[key]; ok {
				groups[i].Items = append(groups[i].Items, item)
				continue
			}
			index[key] = len(groups)
			groups = append(groups, ItemGroup{
				Key:   "product-" + strconv.FormatInt(key, 10),
				Items: []entity.OrderItem{item},
			})
		}

	case entity.GroupingByProperty:
		index := map[int64]int{}
		for _, item := range items {
			valueID, ok := selectedValue(item, *dept.GroupingPropertyID)
			if !ok {
				// 缺少分组属性的明细单独成组
				groups = append(groups, ItemGroup{
					Key:   "item-" + item.ID,
					Items: []entity.OrderItem{item},
				})
				continue
			}
			if i, seen := index[valueID]; seen {
				groups[i].Items = append(groups[i].Items, item)
				continue
			}
			index[valueID] = len(groups)
			groups = append(groups, ItemGroup{
				Key:   "property-" + strconv.FormatInt(valueID, 10),
				Items: []entity.OrderItem{item},
			})
		}

	default: // NO_GROUPING：每行单独成组
		groups = make([]ItemGroup, 0, len(items))
		for _, item := range items {
			groups = append(groups, ItemGroup{
				Key:   "item-" + item.ID,
				Items: []entity.OrderItem{item},
			})
		}
	}

	maxSize := dept.MaxGroupSize
	if maxSize <= 0 {
		maxSize = entity.DefaultMaxGroupSize
	}
	return chunkGroups(groups, maxSize)
}

func selectedValue(item entity.OrderItem, propertyID int64) (int64, bool) {
	for _, p := range item.Properties {
		if p.PropertyID == propertyID {
			return p.PropertyValueID, true
		}
	}
	return 0, false
}

// chunkGroups 切分超限组，保持明细原始顺序
func chunkGroups(groups []ItemGroup, maxSize int) []ItemGroup {
	out := make([]ItemGroup, 0, len(groups))
	for _, g := range groups {
		if len(g.Items) <= maxSize {
			out = append(out, g)
			continue
		}
		for i, n := 0, 1; i < len(g.Items); i, n = i+maxSize, n+1 {
			end := i + maxSize
			if end > len(g.Items) {
				end = len(g.Items)
			}
			out = append(out, ItemGroup{
				Key:   fmt.Sprintf("%s-%d", g.Key, n),
				Items: g.Items[i:end],
			})
		}
	}
	return out
}
