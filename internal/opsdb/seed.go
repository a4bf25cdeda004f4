package opsdb

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// seed populates the demo dataset once. The content only needs to be
// plausible business data with enough variety to make SELECTs interesting.
func (d *DB) seed(ctx context.Context) error {
	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers").Scan(&count); err != nil {
		return fmt.Errorf("opsdb: counting customers: %w", err)
	}
	if count > 0 {
		return nil
	}
	d.logger.Info().Msg("populating sample data")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()
	sb := sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(d.db)

	companies := []struct {
		name     string
		industry string
	}{
		{"Acme Corp", "Technology"},
		{"Global Industries", "Manufacturing"},
		{"DataFlow Inc", "Technology"},
		{"Green Energy Co", "Energy"},
		{"HealthFirst", "Healthcare"},
		{"FinanceHub", "Finance"},
		{"RetailMax", "Retail"},
		{"LogiTech Solutions", "Technology"},
		{"BioMed Research", "Healthcare"},
		{"Urban Development", "Real Estate"},
	}
	customerInsert := sb.
		Insert("customers").
		Columns("name", "email", "company", "industry", "created_at", "lifetime_value", "is_active")
	for i, company := range companies {
		domain := strings.ReplaceAll(strings.ToLower(company.name), " ", "")
		customerInsert = customerInsert.Values(
			fmt.Sprintf("Contact %d", i+1),
			fmt.Sprintf("contact%d@%s.com", i+1, domain),
			company.name,
			company.industry,
			now.AddDate(0, 0, -(30+rng.Intn(336))),
			round2(1000+rng.Float64()*49000),
			rng.Float64() > 0.1,
		)
	}
	if _, err := customerInsert.ExecContext(ctx); err != nil {
		return fmt.Errorf("opsdb: seeding customers: %w", err)
	}

	products := []struct {
		name     string
		category string
		price    float64
	}{
		{"Enterprise License", "Software", 999.99},
		{"API Access - Basic", "Software", 49.99},
		{"API Access - Pro", "Software", 199.99},
		{"Consulting Hour", "Services", 250.00},
		{"Data Analysis Package", "Services", 1500.00},
		{"Training Workshop", "Services", 500.00},
		{"Support Plan - Basic", "Support", 99.99},
		{"Support Plan - Premium", "Support", 299.99},
	}
	productInsert := sb.
		Insert("products").
		Columns("name", "category", "price", "stock_quantity", "is_available")
	for _, product := range products {
		productInsert = productInsert.Values(product.name, product.category, product.price, 10+rng.Intn(991), true)
	}
	if _, err := productInsert.ExecContext(ctx); err != nil {
		return fmt.Errorf("opsdb: seeding products: %w", err)
	}

	cities := []struct {
		city    string
		country string
	}{
		{"New York", "USA"},
		{"San Francisco", "USA"},
		{"London", "UK"},
		{"Berlin", "Germany"},
		{"Tokyo", "Japan"},
		{"Sydney", "Australia"},
		{"Toronto", "Canada"},
		{"Singapore", "Singapore"},
	}
	statuses := []string{"completed", "pending", "shipped", "cancelled"}
	orderInsert := sb.
		Insert("orders").
		Columns("customer_id", "order_date", "total_amount", "status", "shipping_city", "shipping_country")
	for i := 0; i < 50; i++ {
		city := cities[rng.Intn(len(cities))]
		orderInsert = orderInsert.Values(
			1+rng.Intn(len(companies)),
			now.AddDate(0, 0, -(1+rng.Intn(90))),
			round2(100+rng.Float64()*4900),
			statuses[rng.Intn(len(statuses))],
			city.city,
			city.country,
		)
	}
	if _, err := orderInsert.ExecContext(ctx); err != nil {
		return fmt.Errorf("opsdb: seeding orders: %w", err)
	}

	metricNames := []string{"daily_revenue", "active_users", "conversion_rate", "churn_rate"}
	metricInsert := sb.
		Insert("metrics").
		Columns("date", "metric_name", "value", "dimension")
	for day := 0; day < 30; day++ {
		date := now.AddDate(0, 0, -day)
		for _, name := range metricNames {
			value := rng.Float64() * 100
			if strings.Contains(name, "revenue") {
				value = 100 + rng.Float64()*9900
			}
			metricInsert = metricInsert.Values(date, name, round2(value), "overall")
		}
	}
	if _, err := metricInsert.ExecContext(ctx); err != nil {
		return fmt.Errorf("opsdb: seeding metrics: %w", err)
	}

	d.logger.Info().Msg("sample data populated")
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
