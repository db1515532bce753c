package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"creditnet/internal/network/models"
	id "creditnet/pkg/domain"
	"creditnet/pkg/platform/sentinel"
)

// PostgresObservationStore persists the observation pool in PostgreSQL.
// Aggregation queries push the arithmetic into SQL so the pool never has to
// fit in memory.
type PostgresObservationStore struct {
	pool *pgxpool.Pool
}

func NewPostgresObservationStore(pool *pgxpool.Pool) *PostgresObservationStore {
	return &PostgresObservationStore{pool: pool}
}

const observationColumns = `id, global_buyer_id, anonymous_tenant_id, industry_code, region,
	revenue_class, days_to_pay, paid_on_time, days_late, had_dispute, partial_payment,
	size_category, observation_date, observation_year, observation_month, quarter, contributed_at`

func (s *PostgresObservationStore) Append(ctx context.Context, observation *models.Observation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO network_payment_observations (`+observationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		observation.ID,
		observation.GlobalBuyerID.String(),
		observation.AnonymousTenantID.String(),
		observation.IndustryCode,
		observation.Region,
		observation.RevenueClass,
		observation.DaysToPay,
		observation.PaidOnTime,
		observation.DaysLate,
		observation.HadDispute,
		observation.PartialPayment,
		string(observation.SizeCategory),
		observation.ObservationDate,
		observation.ObservationYear,
		observation.ObservationMonth,
		observation.Quarter,
		observation.ContributedAt,
	)
	if err != nil {
		return fmt.Errorf("append observation: %w", err)
	}
	return nil
}

func (s *PostgresObservationStore) ListByBuyer(ctx context.Context, buyerID id.GlobalBuyerID) ([]*models.Observation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+observationColumns+`
		FROM network_payment_observations
		WHERE global_buyer_id = $1
		ORDER BY observation_date DESC, contributed_at DESC
	`, buyerID.String())
	if err != nil {
		return nil, fmt.Errorf("list observations by buyer: %w", err)
	}
	defer rows.Close()

	var out []*models.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PostgresObservationStore) DistinctBuyerIDs(ctx context.Context) ([]id.GlobalBuyerID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT global_buyer_id FROM network_payment_observations
	`)
	if err != nil {
		return nil, fmt.Errorf("distinct buyer ids: %w", err)
	}
	defer rows.Close()

	var out []id.GlobalBuyerID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan buyer id: %w", err)
		}
		out = append(out, id.GlobalBuyerID(raw))
	}
	return out, rows.Err()
}

func (s *PostgresObservationStore) BuyerStatsSince(ctx context.Context, cutoff time.Time) ([]BuyerWindowStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT global_buyer_id,
		       COUNT(DISTINCT anonymous_tenant_id),
		       COUNT(*),
		       AVG(CASE WHEN paid_on_time THEN 100.0 ELSE 0.0 END),
		       COALESCE(STDDEV_POP(days_to_pay), 0)
		FROM network_payment_observations
		WHERE observation_date >= $1
		GROUP BY global_buyer_id
		ORDER BY 5 DESC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("buyer stats since %s: %w", cutoff.Format(time.DateOnly), err)
	}
	defer rows.Close()

	var out []BuyerWindowStats
	for rows.Next() {
		var stats BuyerWindowStats
		var raw string
		if err := rows.Scan(&raw, &stats.TenantCount, &stats.ObservationCount, &stats.OnTimeRate, &stats.DaysToPayStdDev); err != nil {
			return nil, fmt.Errorf("scan buyer stats: %w", err)
		}
		stats.GlobalBuyerID = id.GlobalBuyerID(raw)
		out = append(out, stats)
	}
	return out, rows.Err()
}

func (s *PostgresObservationStore) IndustryMetricsBetween(ctx context.Context, industryCode string, start, end time.Time) (WindowMetrics, error) {
	return s.windowMetrics(ctx, "industry_code", industryCode, start, end)
}

func (s *PostgresObservationStore) RegionMetricsBetween(ctx context.Context, region string, start, end time.Time) (WindowMetrics, error) {
	return s.windowMetrics(ctx, "region", region, start, end)
}

func (s *PostgresObservationStore) windowMetrics(ctx context.Context, column, value string, start, end time.Time) (WindowMetrics, error) {
	var m WindowMetrics
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(days_to_pay), 0),
		       COALESCE(AVG(CASE WHEN paid_on_time THEN 100.0 ELSE 0.0 END), 0),
		       COUNT(*),
		       COUNT(DISTINCT global_buyer_id)
		FROM network_payment_observations
		WHERE `+column+` = $1 AND observation_date >= $2 AND observation_date < $3
	`, value, start, end).Scan(&m.AvgDaysToPay, &m.OnTimePaymentRate, &m.TransactionCount, &m.BuyerCount)
	if err != nil {
		return WindowMetrics{}, fmt.Errorf("window metrics for %s=%s: %w", column, value, err)
	}
	if m.TransactionCount == 0 {
		return WindowMetrics{}, sentinel.ErrNotFound
	}
	return m, nil
}

func (s *PostgresObservationStore) MonthVolume(ctx context.Context, year, month int) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM network_payment_observations
		WHERE observation_year = $1 AND observation_month = $2
	`, year, month).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("month volume: %w", err)
	}
	return count, nil
}

func (s *PostgresObservationStore) ActiveIndustries(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "industry_code")
}

func (s *PostgresObservationStore) ActiveRegions(ctx context.Context) ([]string, error) {
	return s.distinctColumn(ctx, "region")
}

func (s *PostgresObservationStore) distinctColumn(ctx context.Context, column string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT `+column+` FROM network_payment_observations
		WHERE `+column+` <> '' ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", column, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresObservationStore) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM network_payment_observations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return count, nil
}

func scanObservation(rows pgx.Rows) (*models.Observation, error) {
	var o models.Observation
	var buyer, tenant, size string
	err := rows.Scan(
		&o.ID, &buyer, &tenant, &o.IndustryCode, &o.Region, &o.RevenueClass,
		&o.DaysToPay, &o.PaidOnTime, &o.DaysLate, &o.HadDispute, &o.PartialPayment,
		&size, &o.ObservationDate, &o.ObservationYear, &o.ObservationMonth,
		&o.Quarter, &o.ContributedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan observation: %w", err)
	}
	o.GlobalBuyerID = id.GlobalBuyerID(buyer)
	o.AnonymousTenantID = id.AnonymousTenantID(tenant)
	o.SizeCategory = id.TransactionSizeCategory(size)
	return &o, nil
}

// PostgresProfileStore persists aggregated buyer profiles. Metrics and badges
// ride along as JSONB since they are always read and written whole.
type PostgresProfileStore struct {
	pool *pgxpool.Pool
}

func NewPostgresProfileStore(pool *pgxpool.Pool) *PostgresProfileStore {
	return &PostgresProfileStore{pool: pool}
}

func (s *PostgresProfileStore) Upsert(ctx context.Context, profile *models.BuyerProfile) error {
	metrics, err := json.Marshal(profile.Metrics)
	if err != nil {
		return fmt.Errorf("marshal profile metrics: %w", err)
	}
	badges, err := json.Marshal(profile.TrustBadges)
	if err != nil {
		return fmt.Errorf("marshal trust badges: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO network_buyer_profiles (
			global_buyer_id, industry_code, region, revenue_class,
			community_score, credit_trust_score, trust_tier, confidence,
			consistency_score, trend_direction, data_points, verified_by_count,
			metrics, trust_badges, last_updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (global_buyer_id) DO UPDATE SET
			industry_code = EXCLUDED.industry_code,
			region = EXCLUDED.region,
			revenue_class = EXCLUDED.revenue_class,
			community_score = EXCLUDED.community_score,
			credit_trust_score = EXCLUDED.credit_trust_score,
			trust_tier = EXCLUDED.trust_tier,
			confidence = EXCLUDED.confidence,
			consistency_score = EXCLUDED.consistency_score,
			trend_direction = EXCLUDED.trend_direction,
			data_points = EXCLUDED.data_points,
			verified_by_count = EXCLUDED.verified_by_count,
			metrics = EXCLUDED.metrics,
			trust_badges = EXCLUDED.trust_badges,
			last_updated_at = EXCLUDED.last_updated_at
	`,
		profile.GlobalBuyerID.String(),
		profile.IndustryCode,
		profile.Region,
		profile.RevenueClass,
		profile.CommunityScore,
		profile.CreditTrustScore,
		string(profile.TrustTier),
		profile.Confidence,
		profile.ConsistencyScore,
		string(profile.TrendDirection),
		profile.DataPoints,
		profile.VerifiedByCount,
		metrics,
		badges,
		profile.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert buyer profile: %w", err)
	}
	return nil
}

const profileColumns = `global_buyer_id, industry_code, region, revenue_class,
	community_score, credit_trust_score, trust_tier, confidence, consistency_score,
	trend_direction, data_points, verified_by_count, metrics, trust_badges, last_updated_at`

func (s *PostgresProfileStore) FindByBuyer(ctx context.Context, buyerID id.GlobalBuyerID) (*models.BuyerProfile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM network_buyer_profiles
		WHERE global_buyer_id = $1
	`, buyerID.String())

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find buyer profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresProfileStore) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM network_buyer_profiles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

func (s *PostgresProfileStore) CountByTrustScoreInRange(ctx context.Context, min, upper float64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM network_buyer_profiles
		WHERE credit_trust_score >= $1 AND credit_trust_score < $2
	`, min, upper).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count profiles by trust score: %w", err)
	}
	return count, nil
}

func (s *PostgresProfileStore) ListFiltered(ctx context.Context, industryCode, region string) ([]*models.BuyerProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+profileColumns+`
		FROM network_buyer_profiles
		WHERE ($1 = '' OR industry_code = $1)
		  AND ($2 = '' OR region = $2)
		ORDER BY global_buyer_id
	`, industryCode, region)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []*models.BuyerProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, profile)
	}
	return out, rows.Err()
}

func scanProfile(row pgx.Row) (*models.BuyerProfile, error) {
	var p models.BuyerProfile
	var buyer, tier, trend string
	var metrics, badges []byte
	err := row.Scan(
		&buyer, &p.IndustryCode, &p.Region, &p.RevenueClass,
		&p.CommunityScore, &p.CreditTrustScore, &tier, &p.Confidence,
		&p.ConsistencyScore, &trend, &p.DataPoints, &p.VerifiedByCount,
		&metrics, &badges, &p.LastUpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.GlobalBuyerID = id.GlobalBuyerID(buyer)
	p.TrustTier = id.TrustTier(tier)
	p.TrendDirection = id.TrendDirection(trend)
	if err := json.Unmarshal(metrics, &p.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal profile metrics: %w", err)
	}
	if len(badges) > 0 {
		if err := json.Unmarshal(badges, &p.TrustBadges); err != nil {
			return nil, fmt.Errorf("unmarshal trust badges: %w", err)
		}
	}
	return &p, nil
}

// PostgresContributionStore persists tenant participation rows. Execute runs
// validate-then-mutate inside a transaction with the row locked, the SQL
// equivalent of the in-memory store holding its write lock.
type PostgresContributionStore struct {
	pool *pgxpool.Pool
}

func NewPostgresContributionStore(pool *pgxpool.Pool) *PostgresContributionStore {
	return &PostgresContributionStore{pool: pool}
}

const contributionColumns = `tenant_id, tier, active, opt_in_to_network_sharing,
	privacy_settings, api_secret_hash, transactions_shared, buyers_shared,
	network_scores_accessed, last_access_at, created_at, updated_at`

func (s *PostgresContributionStore) Upsert(ctx context.Context, contribution *models.TenantContribution) error {
	privacy, err := json.Marshal(contribution.PrivacySettings)
	if err != nil {
		return fmt.Errorf("marshal privacy settings: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tenant_contributions (`+contributionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			active = EXCLUDED.active,
			opt_in_to_network_sharing = EXCLUDED.opt_in_to_network_sharing,
			privacy_settings = EXCLUDED.privacy_settings,
			api_secret_hash = EXCLUDED.api_secret_hash,
			transactions_shared = EXCLUDED.transactions_shared,
			buyers_shared = EXCLUDED.buyers_shared,
			network_scores_accessed = EXCLUDED.network_scores_accessed,
			last_access_at = EXCLUDED.last_access_at,
			updated_at = EXCLUDED.updated_at
	`,
		uuid.UUID(contribution.TenantID),
		string(contribution.Tier),
		contribution.Active,
		contribution.OptInToNetworkSharing,
		privacy,
		contribution.APISecretHash,
		contribution.TransactionsShared,
		contribution.BuyersShared,
		contribution.NetworkScoresAccessed,
		contribution.LastAccessAt,
		contribution.CreatedAt,
		contribution.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert tenant contribution: %w", err)
	}
	return nil
}

func (s *PostgresContributionStore) FindByTenant(ctx context.Context, tenantID id.TenantID) (*models.TenantContribution, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+contributionColumns+`
		FROM tenant_contributions
		WHERE tenant_id = $1
	`, uuid.UUID(tenantID))

	contribution, err := scanContribution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant contribution: %w", err)
	}
	return contribution, nil
}

func (s *PostgresContributionStore) Execute(ctx context.Context, tenantID id.TenantID,
	validate func(*models.TenantContribution) error,
	mutate func(*models.TenantContribution)) (*models.TenantContribution, error) {

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin contribution update: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `
		SELECT `+contributionColumns+`
		FROM tenant_contributions
		WHERE tenant_id = $1
		FOR UPDATE
	`, uuid.UUID(tenantID))

	contribution, err := scanContribution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock tenant contribution: %w", err)
	}

	if err := validate(contribution); err != nil {
		return nil, err
	}
	mutate(contribution)

	privacy, err := json.Marshal(contribution.PrivacySettings)
	if err != nil {
		return nil, fmt.Errorf("marshal privacy settings: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE tenant_contributions SET
			tier = $2,
			active = $3,
			opt_in_to_network_sharing = $4,
			privacy_settings = $5,
			api_secret_hash = $6,
			transactions_shared = $7,
			buyers_shared = $8,
			network_scores_accessed = $9,
			last_access_at = $10,
			updated_at = $11
		WHERE tenant_id = $1
	`,
		uuid.UUID(contribution.TenantID),
		string(contribution.Tier),
		contribution.Active,
		contribution.OptInToNetworkSharing,
		privacy,
		contribution.APISecretHash,
		contribution.TransactionsShared,
		contribution.BuyersShared,
		contribution.NetworkScoresAccessed,
		contribution.LastAccessAt,
		contribution.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update tenant contribution: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit contribution update: %w", err)
	}
	return contribution, nil
}

func scanContribution(row pgx.Row) (*models.TenantContribution, error) {
	var c models.TenantContribution
	var tenantID uuid.UUID
	var tier string
	var privacy []byte
	err := row.Scan(
		&tenantID, &tier, &c.Active, &c.OptInToNetworkSharing,
		&privacy, &c.APISecretHash, &c.TransactionsShared, &c.BuyersShared,
		&c.NetworkScoresAccessed, &c.LastAccessAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.TenantID = id.TenantID(tenantID)
	c.Tier = id.ContributionTier(tier)
	if err := json.Unmarshal(privacy, &c.PrivacySettings); err != nil {
		return nil, fmt.Errorf("unmarshal privacy settings: %w", err)
	}
	return &c, nil
}

// PostgresIntelligenceStore persists detected network patterns.
type PostgresIntelligenceStore struct {
	pool *pgxpool.Pool
}

func NewPostgresIntelligenceStore(pool *pgxpool.Pool) *PostgresIntelligenceStore {
	return &PostgresIntelligenceStore{pool: pool}
}

const intelligenceColumns = `id, type, severity, title, recommendation, industry_code,
	region, evidence, affected_buyers, detected_by, detected_at, valid_until,
	visible_to_tiers, active`

func (s *PostgresIntelligenceStore) Append(ctx context.Context, record *models.Intelligence) error {
	evidence, err := json.Marshal(record.Evidence)
	if err != nil {
		return fmt.Errorf("marshal intelligence evidence: %w", err)
	}
	tiers := make([]string, len(record.VisibleToTiers))
	for i, t := range record.VisibleToTiers {
		tiers[i] = string(t)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO network_intelligence (`+intelligenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		record.ID,
		string(record.Type),
		string(record.Severity),
		record.Title,
		record.Recommendation,
		record.IndustryCode,
		record.Region,
		evidence,
		record.AffectedBuyers,
		record.DetectedBy,
		record.DetectedAt,
		record.ValidUntil,
		tiers,
		record.Active,
	)
	if err != nil {
		return fmt.Errorf("append intelligence: %w", err)
	}
	return nil
}

func (s *PostgresIntelligenceStore) ListActive(ctx context.Context, now time.Time, industryCode string) ([]*models.Intelligence, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+intelligenceColumns+`
		FROM network_intelligence
		WHERE active AND valid_until > $1
		  AND ($2 = '' OR industry_code = '' OR industry_code = $2)
		ORDER BY CASE severity
			WHEN 'CRITICAL' THEN 3
			WHEN 'HIGH' THEN 2
			WHEN 'MEDIUM' THEN 1
			ELSE 0
		END DESC, detected_at DESC
	`, now, industryCode)
	if err != nil {
		return nil, fmt.Errorf("list active intelligence: %w", err)
	}
	defer rows.Close()

	return collectIntelligence(rows)
}

func (s *PostgresIntelligenceStore) RecentActive(ctx context.Context, now time.Time, limit int) ([]*models.Intelligence, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+intelligenceColumns+`
		FROM network_intelligence
		WHERE active AND valid_until > $1
		ORDER BY detected_at DESC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("recent intelligence: %w", err)
	}
	defer rows.Close()

	return collectIntelligence(rows)
}

func (s *PostgresIntelligenceStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM network_intelligence WHERE valid_until <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired intelligence: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func collectIntelligence(rows pgx.Rows) ([]*models.Intelligence, error) {
	var out []*models.Intelligence
	for rows.Next() {
		var r models.Intelligence
		var recordType, severity string
		var evidence []byte
		var tiers []string
		err := rows.Scan(
			&r.ID, &recordType, &severity, &r.Title, &r.Recommendation,
			&r.IndustryCode, &r.Region, &evidence, &r.AffectedBuyers,
			&r.DetectedBy, &r.DetectedAt, &r.ValidUntil, &tiers, &r.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("scan intelligence: %w", err)
		}
		r.Type = models.IntelligenceType(recordType)
		r.Severity = id.Severity(severity)
		if len(evidence) > 0 {
			if err := json.Unmarshal(evidence, &r.Evidence); err != nil {
				return nil, fmt.Errorf("unmarshal intelligence evidence: %w", err)
			}
		}
		r.VisibleToTiers = make([]id.ContributionTier, len(tiers))
		for i, t := range tiers {
			r.VisibleToTiers[i] = id.ContributionTier(t)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
