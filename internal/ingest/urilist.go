package ingest

import "github.com/John-Robertt/submerge/internal/model"

const (
	selectGroupName = "节点选择"
	autoGroupName   = "自动选择"
	autoTestURL     = "http://www.gstatic.com/generate_204"
)

// FromURIList wraps nodes parsed from a URI list in a minimal runnable
// document: local ports, a manual select group, an automatic url-test group
// and a single catch-all rule.
func FromURIList(nodes []*model.Node) *model.Document {
	names := model.NodeNames(nodes)

	settings := model.NewFields()
	settings.Set("port", 7890)
	settings.Set("socks-port", 7891)
	settings.Set("allow-lan", true)
	settings.Set("mode", "rule")
	settings.Set("log-level", "info")
	settings.Set(model.KeyProxies, []any{})
	settings.Set(model.KeyGroups, []any{})
	settings.Set("rules", []any{"MATCH," + selectGroupName})

	manual := &model.Group{}
	manual.Set(model.KeyName, selectGroupName)
	manual.Set(model.KeyType, "select")
	manual.SetMembers(append([]string{model.Direct}, names...))

	auto := &model.Group{}
	auto.Set(model.KeyName, autoGroupName)
	auto.Set(model.KeyType, "url-test")
	auto.Set("url", autoTestURL)
	auto.Set("interval", 300)
	auto.Set("tolerance", 50)
	auto.SetMembers(names)

	return &model.Document{
		Settings:  settings,
		Nodes:     nodes,
		Groups:    []*model.Group{manual, auto},
		HasGroups: true,
	}
}
