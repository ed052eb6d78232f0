// Package seed provides the built-in demo incident corpus and loading of
// custom corpora from YAML files.
package seed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sentinelstack/sentinel-slice/pkg/models"
)

// fileSlice is one record in a YAML corpus file.
type fileSlice struct {
	Domain       string         `yaml:"domain"`
	StateSummary string         `yaml:"state_summary"`
	Resolution   string         `yaml:"resolution"`
	Metadata     map[string]any `yaml:"metadata"`
}

// corpusFile is the YAML root structure.
type corpusFile struct {
	Slices []fileSlice `yaml:"slices"`
}

// LoadFile reads incident slices from a YAML corpus file. Identifiers and
// ingestion timestamps are assigned at ingest time, not here.
func LoadFile(path string) ([]models.Slice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	var f corpusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing corpus file: %w", err)
	}
	if len(f.Slices) == 0 {
		return nil, fmt.Errorf("corpus file %s contains no slices", path)
	}

	slices := make([]models.Slice, 0, len(f.Slices))
	for i, fs := range f.Slices {
		if strings.TrimSpace(fs.Domain) == "" {
			return nil, fmt.Errorf("slice %d: domain is required", i)
		}
		if strings.TrimSpace(fs.StateSummary) == "" {
			return nil, fmt.Errorf("slice %d: state_summary is required", i)
		}
		if strings.TrimSpace(fs.Resolution) == "" {
			return nil, fmt.Errorf("slice %d: resolution is required", i)
		}
		slices = append(slices, models.Slice{
			Domain:       fs.Domain,
			StateSummary: fs.StateSummary,
			Resolution:   fs.Resolution,
			Metadata:     fs.Metadata,
		})
	}
	return slices, nil
}

// DemoSlices returns the built-in demo corpus covering five operational
// domains. Each call returns fresh copies safe for the caller to modify.
func DemoSlices() []models.Slice {
	return []models.Slice{
		{
			Domain: "k8s-controlplane",
			StateSummary: "Cluster: prod-us-east-1. etcd write latency spiking to 800ms. " +
				"API server request queue growing. Pod scheduling failures increasing. " +
				"Node heartbeat timeouts observed. Control plane CPU at 92%.",
			Resolution: "1. Scaled etcd from 3 to 5 nodes. " +
				"2. Increased etcd heap to 8GB. " +
				"3. Disabled a misbehaving MutatingWebhook that was adding 400ms per request. " +
				"4. Restarted kube-scheduler after clearing stale lease. " +
				"Resolution time: 34 minutes.",
			Metadata: map[string]any{"severity": "critical", "incident_id": "K8S-INC-001", "duration_min": 34},
		},
		{
			Domain: "ecommerce-api",
			StateSummary: "Service: checkout-api prod. P99 latency degraded from 120ms to 3.4s. " +
				"Database connection pool exhausted. Redis hit rate dropped to 12%. " +
				"Payment webhook timeouts increasing. Cart abandonment rate spiking.",
			Resolution: "1. Increased DB connection pool from 50 to 200. " +
				"2. Identified N+1 query in cart pricing service, patched with eager loading. " +
				"3. Warmed Redis cache with top 1000 SKUs. " +
				"4. Scaled checkout pods from 4 to 12. " +
				"Resolution time: 22 minutes.",
			Metadata: map[string]any{"severity": "high", "incident_id": "ECO-INC-007", "duration_min": 22},
		},
		{
			Domain: "ml-inference",
			StateSummary: "GPU cluster: inference-us-west. Model serving latency up 5x. " +
				"CUDA out-of-memory errors on 3/8 nodes. Batch queue depth growing. " +
				"Throughput dropped from 2000 to 180 RPS. Driver version mismatch detected.",
			Resolution: "1. Rolled back CUDA driver from 12.3 to 12.1 on affected nodes. " +
				"2. Reduced batch size from 64 to 32 for stability. " +
				"3. Drained and rescheduled pods on healthy nodes. " +
				"4. Enabled dynamic batching with max_queue_delay=50ms. " +
				"Resolution time: 45 minutes.",
			Metadata: map[string]any{"severity": "high", "incident_id": "ML-INC-003", "duration_min": 45},
		},
		{
			Domain: "data-pipeline",
			StateSummary: "Kafka cluster lag growing on topic user-events. Consumer group lag at 2.1M messages. " +
				"Flink job restarting every 8 minutes due to checkpoint timeout. " +
				"S3 sink backpressure. Downstream analytics dashboards stale by 4 hours.",
			Resolution: "1. Increased Kafka partition count from 12 to 48. " +
				"2. Scaled Flink taskmanagers from 6 to 20. " +
				"3. Increased checkpoint interval to 10 min and timeout to 20 min. " +
				"4. Temporary S3 multipart upload parallelism increase to catch up. " +
				"Resolution time: 67 minutes.",
			Metadata: map[string]any{"severity": "medium", "incident_id": "PIPE-INC-012", "duration_min": 67},
		},
		{
			Domain: "k8s-controlplane",
			StateSummary: "Cluster: prod-eu-west-2. Node disk pressure on 4/10 worker nodes. " +
				"ImagePullBackOff errors cluster-wide. Eviction threshold breached. " +
				"Log volumes consuming 94% of ephemeral storage. DaemonSet pods pending.",
			Resolution: "1. Emergency log rotation on affected nodes via DaemonSet Job. " +
				"2. Deployed node-problem-detector with disk pressure alerting. " +
				"3. Migrated log shipping to Vector agent with compression. " +
				"4. Increased PVC size for log volumes from 50Gi to 200Gi. " +
				"Resolution time: 18 minutes.",
			Metadata: map[string]any{"severity": "high", "incident_id": "K8S-INC-009", "duration_min": 18},
		},
		{
			Domain: "ecommerce-api",
			StateSummary: "CDN edge: Flash sale traffic surge. Origin error rate at 34%. " +
				"Rate limiter misconfigured after deploy. Authenticated users getting 429s. " +
				"Origin CPU at 100%. Cache bypass headers inadvertently set in last deploy.",
			Resolution: "1. Hotfix deploy: removed cache-bypass headers. " +
				"2. Raised rate limiter thresholds for authenticated tier. " +
				"3. Enabled CDN request coalescing for product API. " +
				"4. Scaled origin from 8 to 32 pods for flash sale duration. " +
				"Resolution time: 11 minutes.",
			Metadata: map[string]any{"severity": "critical", "incident_id": "ECO-INC-019", "duration_min": 11},
		},
		{
			Domain: "network-5g",
			StateSummary: "5G network slice: eMBB-slice-3. Throughput degradation 60%. " +
				"RAN scheduler congestion at 3 gNodeBs. UE handover failures increasing. " +
				"Core network AMF CPU spike. NSSF slice selection failures.",
			Resolution: "1. Rebalanced UE load across gNodeBs via ANR parameter update. " +
				"2. Scaled AMF instances from 2 to 6 in Kubernetes. " +
				"3. Updated NSSF routing policy to deprioritize congested cells. " +
				"4. Triggered proactive handover for 2000 UEs in high-density sector. " +
				"Resolution time: 28 minutes.",
			Metadata: map[string]any{"severity": "critical", "incident_id": "5G-INC-004", "duration_min": 28},
		},
		{
			Domain: "ml-inference",
			StateSummary: "Recommendation engine latency degraded. Feature store read timeout after model update. " +
				"Feature drift detected: 3 features returning NaN. A/B test control group impacted. " +
				"Fallback to popularity-based ranking activated automatically.",
			Resolution: "1. Rolled back model version from v2.4.1 to v2.3.8. " +
				"2. Fixed feature pipeline: added null-check for sparse user features. " +
				"3. Backfilled missing feature values using 7-day rolling median. " +
				"4. Validated new model in shadow mode for 48h before re-promoting. " +
				"Resolution time: 55 minutes.",
			Metadata: map[string]any{"severity": "medium", "incident_id": "ML-INC-011", "duration_min": 55},
		},
	}
}
