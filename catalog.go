package copilot

import (
	"context"

	"go.uber.org/zap"
)

// UnknownSourceServer is the placeholder recorded when a tool definition
// arrives without an identifiable origin server.
const UnknownSourceServer = "unknown"

// ResolveCatalog queries each tool server enabled for the agent, merges the
// results and deduplicates them by tool name. When two servers export the
// same name, a definition with a known source server wins over one carrying
// an empty or placeholder source. The result is deterministic given
// identical server response ordering.
//
// Zero enabled servers yields an empty catalog; the run then degrades to a
// plain chat round trip. A server whose listing fails is skipped: a partial
// catalog is preferred over no catalog.
func ResolveCatalog(ctx context.Context, agent AgentDescriptor, lister ToolLister, logger *zap.Logger) []ToolDefinition {
	if logger == nil {
		logger = zap.NewNop()
	}

	var catalog []ToolDefinition
	index := make(map[string]int)

	for _, serverID := range agent.EnabledToolServers {
		defs, err := lister.ListTools(ctx, serverID)
		if err != nil {
			logger.Warn("tool server listing failed",
				zap.String("server_id", serverID),
				zap.Error(err))
			continue
		}

		for _, def := range defs {
			if def.Name == "" {
				continue
			}
			if def.SourceServerID == "" {
				def.SourceServerID = serverID
			}

			at, seen := index[def.Name]
			if !seen {
				index[def.Name] = len(catalog)
				catalog = append(catalog, def)
				continue
			}
			if !knownSource(catalog[at].SourceServerID) && knownSource(def.SourceServerID) {
				catalog[at] = def
			}
		}
	}

	return catalog
}

func knownSource(serverID string) bool {
	return serverID != "" && serverID != UnknownSourceServer
}
