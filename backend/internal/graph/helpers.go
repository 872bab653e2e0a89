package graph

import (
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ============================================================================
// Helper Functions
// ============================================================================

func getNodeFromRecord(record *neo4j.Record, key string) (neo4j.Node, bool) {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return neo4j.Node{}, false
	}
	node, ok := val.(neo4j.Node)
	return node, ok
}

func getBoolFromRecord(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	b, _ := val.(bool)
	return b
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	return toInt64(val)
}

func getStringSliceFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return []string{}
	}
	return toStringSlice(val)
}

func getNodeSliceFromRecord(record *neo4j.Record, key string) []neo4j.Node {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	items, ok := val.([]interface{})
	if !ok {
		return nil
	}
	nodes := make([]neo4j.Node, 0, len(items))
	for _, item := range items {
		if node, ok := item.(neo4j.Node); ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func getStringFromMap(m map[string]interface{}, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func getBoolFromMap(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func getInt64FromMap(m map[string]interface{}, key string) int64 {
	return toInt64(m[key])
}

func toInt64(val interface{}) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func toStringSlice(val interface{}) []string {
	switch v := val.(type) {
	case []string:
		return v
	case []interface{}:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	return []string{}
}

// ============================================================================
// Node Mapping
// ============================================================================

func postFromNode(node neo4j.Node) Post {
	return Post{
		ID:               getStringFromMap(node.Props, "id", ""),
		Title:            getStringFromMap(node.Props, "title", ""),
		Content:          getStringFromMap(node.Props, "content", ""),
		CreationDate:     getInt64FromMap(node.Props, "creation_date"),
		ModificationDate: getInt64FromMap(node.Props, "modification_date"),
		FilesList:        toStringSlice(node.Props["files_list"]),
		Published:        getBoolFromMap(node.Props, "published"),
		Region:           getStringFromMap(node.Props, "region", ""),
		Tribe:            getStringFromMap(node.Props, "tribe", ""),
	}
}

func commentFromNode(node neo4j.Node) Comment {
	return Comment{
		ID:           getStringFromMap(node.Props, "id", ""),
		Content:      getStringFromMap(node.Props, "content", ""),
		CreationDate: getInt64FromMap(node.Props, "creation_date"),
		Edited:       getBoolFromMap(node.Props, "edited"),
		IsResponse:   getBoolFromMap(node.Props, "is_response"),
	}
}

// actorFromNode maps a Subscriber or Expert node. Credential-like
// properties never leave the store.
func actorFromNode(node neo4j.Node) Actor {
	actor := Actor{
		ID:   getStringFromMap(node.Props, "id", ""),
		Kind: KindSubscriber,
		Name: getStringFromMap(node.Props, "name", ""),
	}
	for _, label := range node.Labels {
		if label == LabelExpert {
			actor.Kind = KindExpert
		}
	}

	for key, val := range node.Props {
		if key == "id" || key == "name" || strings.Contains(strings.ToLower(key), "password") {
			continue
		}
		if actor.Attributes == nil {
			actor.Attributes = make(map[string]interface{})
		}
		actor.Attributes[key] = val
	}
	return actor
}

func actorPtrFromRecord(record *neo4j.Record, key string) *Actor {
	node, ok := getNodeFromRecord(record, key)
	if !ok {
		return nil
	}
	actor := actorFromNode(node)
	return &actor
}

func actorsFromNodes(nodes []neo4j.Node) []Actor {
	actors := make([]Actor, 0, len(nodes))
	for _, node := range nodes {
		actors = append(actors, actorFromNode(node))
	}
	return actors
}
