package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	"github.com/tanpawarit/ai-suite-runtime/agent/store"
	configx "github.com/tanpawarit/ai-suite-runtime/pkg/config"
	"gopkg.in/yaml.v3"
)

const kbChunkRunes = 1200

// seedFixtures is the yaml layout accepted by `seed --fixtures`.
type seedFixtures struct {
	TenantID     string                  `yaml:"tenant_id"`
	Name         string                  `yaml:"name"`
	Profile      contractx.TenantProfile `yaml:"profile"`
	BrandKitText string                  `yaml:"brand_kit_text"`
	Knowledge    []fixtureDoc            `yaml:"knowledge"`
}

type fixtureDoc struct {
	DocID     string `yaml:"doc_id"`
	SourceURI string `yaml:"source_uri"`
	Content   string `yaml:"content"`
}

const defaultTenantID = "tenant_001"

func defaultFixtures(tenantID string) seedFixtures {
	return seedFixtures{
		TenantID: tenantID,
		Name:     "Tenant 001",
		Profile: contractx.TenantProfile{
			DisplayName: "MH Concierge",
			Tone:        "senior designer, vibe-first luxury",
			Keywords:    []string{"vibe-first", "luxury", "modularity", "Minkowski", "MH"},
			Signature:   "MH (Minkowski) Concierge",
			BrandKit:    map[string]any{"brand_name": "MH / Minkowski"},
		},
	}
}

// loadFixtures resolves the tenant to seed. An explicit tenantID wins over the
// fixture file, which wins over defaultTenantID.
func loadFixtures(path, tenantID string) (seedFixtures, error) {
	tenantID = strings.TrimSpace(tenantID)
	if path == "" {
		if tenantID == "" {
			tenantID = defaultTenantID
		}
		fx := defaultFixtures(tenantID)
		fx.Profile.TenantID = tenantID
		return fx, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return seedFixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	var fx seedFixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return seedFixtures{}, fmt.Errorf("parse fixtures %s: %w", path, err)
	}
	if tenantID != "" {
		fx.TenantID = tenantID
	}
	if strings.TrimSpace(fx.TenantID) == "" {
		fx.TenantID = defaultTenantID
	}
	fx.Profile.TenantID = fx.TenantID
	return fx, nil
}

func readKBFile(path string) ([]contractx.KBChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kb file: %w", err)
	}
	docID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := store.SplitChunks(string(data), kbChunkRunes)
	chunks := make([]contractx.KBChunk, 0, len(parts))
	for i, p := range parts {
		chunks = append(chunks, contractx.KBChunk{
			DocID:      docID,
			ChunkIndex: i,
			SourceURI:  path,
			SourceType: "kb_file",
			Content:    p,
		})
	}
	return chunks, nil
}

func newSeedCmd() *cobra.Command {
	var tenantID, fixturesPath, kbFile string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the schema if missing and upsert a tenant with its brand kit and knowledge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fx, err := loadFixtures(fixturesPath, tenantID)
			if err != nil {
				return err
			}

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := migrate(ctx, st); err != nil {
				return err
			}
			n, err := seed(ctx, st, fx, kbFile)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded tenant %s (%d knowledge chunks)\n", fx.TenantID, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "Tenant id to seed (default: fixture tenant_id, then "+defaultTenantID+")")
	cmd.Flags().StringVar(&fixturesPath, "fixtures", "", "YAML file with tenant profile and knowledge docs")
	cmd.Flags().StringVar(&kbFile, "kb-file", "", "Markdown or text file to load as knowledge chunks")
	return cmd
}

// seedTarget is the part of the store seeding writes to.
type seedTarget interface {
	UpsertTenant(ctx context.Context, tenantID, name string) error
	UpsertProfile(ctx context.Context, p contractx.TenantProfile) error
	UpsertChunk(ctx context.Context, tenantID string, c contractx.KBChunk) error
}

func seed(ctx context.Context, st seedTarget, fx seedFixtures, kbFile string) (int, error) {
	name := fx.Name
	if name == "" {
		name = fx.TenantID
	}
	if err := st.UpsertTenant(ctx, fx.TenantID, name); err != nil {
		return 0, err
	}

	profile := fx.Profile
	profile.TenantID = fx.TenantID
	profile.BrandKitText = fx.BrandKitText
	if err := st.UpsertProfile(ctx, profile); err != nil {
		return 0, err
	}

	var chunks []contractx.KBChunk
	for _, doc := range fx.Knowledge {
		for i, p := range store.SplitChunks(doc.Content, kbChunkRunes) {
			chunks = append(chunks, contractx.KBChunk{
				DocID:      doc.DocID,
				ChunkIndex: i,
				SourceURI:  doc.SourceURI,
				SourceType: "fixture",
				Content:    p,
			})
		}
	}
	if kbFile != "" {
		fileChunks, err := readKBFile(kbFile)
		if err != nil {
			return 0, err
		}
		chunks = append(chunks, fileChunks...)
	}

	for _, c := range chunks {
		if err := st.UpsertChunk(ctx, fx.TenantID, c); err != nil {
			return 0, err
		}
	}
	zerolog.Ctx(ctx).Info().Str("tenant_id", fx.TenantID).Int("chunks", len(chunks)).Msg("tenant seeded")
	return len(chunks), nil
}

func migrate(ctx context.Context, st *store.Store) error {
	if err := st.CreateSchema(ctx); err != nil {
		return err
	}
	dbCfg, err := configx.New[store.Config]("DB")
	if err != nil {
		return err
	}
	if dbCfg.VectorDims > 0 {
		return st.EnableVectorSearch(ctx, dbCfg.VectorDims)
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			if err := migrate(cmd.Context(), st); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
