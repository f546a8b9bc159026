// Package speedtest measures internet bandwidth and latency against the
// nearest speedtest.net servers.
package speedtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	st "github.com/showwin/speedtest-go/speedtest"

	"autokit/internal/sched"
)

// Params:
//
//	servers  candidate servers to ping, nearest first (default 3)
func Unit() sched.ActionUnit {
	return sched.ActionUnit{
		Name:    "speedtest",
		Timeout: 3 * time.Minute,
		// A single run saturates the uplink; overlapping runs would skew
		// each other's numbers.
		ConcurrentSafe: false,
		Run:            run,
	}
}

func run(ctx context.Context, p sched.Params) (string, error) {
	candidateN := 3
	if v := p.Get("servers", ""); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &candidateN); err != nil || candidateN < 1 {
			candidateN = 3
		}
	}

	stc := st.New(st.WithUserConfig(&st.UserConfig{MaxConnections: 4}))

	user, err := stc.FetchUserInfoContext(ctx)
	if err != nil {
		return "", fmt.Errorf("speedtest: fetch user info: %w", err)
	}

	servers, err := stc.FetchServerListContext(ctx)
	if err != nil {
		return "", fmt.Errorf("speedtest: fetch server list: %w", err)
	}
	if a := servers.Available(); a != nil {
		servers = *a
	}
	if len(servers) == 0 {
		return "", fmt.Errorf("speedtest: no servers available")
	}

	sort.Slice(servers, func(i, j int) bool { return servers[i].Distance < servers[j].Distance })
	if candidateN > len(servers) {
		candidateN = len(servers)
	}

	var best *st.Server
	for _, s := range servers[:candidateN] {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := s.PingTestContext(ctx, nil); err != nil {
			continue
		}
		if best == nil || s.Latency < best.Latency {
			best = s
		}
	}
	if best == nil {
		return "", fmt.Errorf("speedtest: all latency tests failed")
	}

	if err := best.DownloadTestContext(ctx); err != nil {
		return "", fmt.Errorf("speedtest: download test: %w", err)
	}
	if err := best.UploadTestContext(ctx); err != nil {
		return "", fmt.Errorf("speedtest: upload test: %w", err)
	}
	defer func() {
		stc.Snapshots().Clean()
		stc.Reset()
	}()

	return fmt.Sprintf("down %.1f Mbps, up %.1f Mbps, ping %dms via %s (%s, isp %s)",
		best.DLSpeed.Mbps(), best.ULSpeed.Mbps(), best.Latency.Milliseconds(),
		best.Sponsor, best.Country, user.Isp), nil
}
