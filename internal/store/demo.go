package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// demoQueries returns the seed content shown on a fresh install, before any
// persisted state exists. Numbers follow creation order, same as AddQuery.
func demoQueries() []Query {
	now := time.Now().UTC()

	revenue, _ := json.Marshal(map[string]any{
		"series": []map[string]any{
			{"region": "EMEA", "values": []float64{112, 128, 141, 155}},
			{"region": "AMER", "values": []float64{98, 104, 121, 133}},
			{"region": "APAC", "values": []float64{67, 82, 91, 97}},
		},
		"unit": "kUSD",
	})

	customers, _ := json.Marshal(map[string]any{
		"columns": []string{"customer", "orders", "total"},
		"rows": [][]any{
			{"Northwind Traders", 42, 18250.40},
			{"Contoso Ltd", 37, 16110.00},
			{"Fabrikam Inc", 29, 12890.75},
		},
	})

	return []Query{
		{
			ID:     uuid.New().String(),
			Number: 1,
			Prompt: "Show monthly revenue by region for the last quarter",
			Code:   "df.groupby(['region', 'month'])['revenue'].sum().unstack().plot(kind='bar')",
			Output: "Rendered revenue chart for 3 regions over 4 months",
			Artifacts: []Artifact{
				{ID: uuid.New().String(), Kind: ArtifactChart, Title: "Revenue by region", Result: revenue},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:     uuid.New().String(),
			Number: 2,
			Prompt: "Who are our top customers by order volume?",
			Code:   "df.groupby('customer').agg(orders=('id', 'count'), total=('amount', 'sum')).nlargest(3, 'total')",
			Output: "3 rows",
			Artifacts: []Artifact{
				{ID: uuid.New().String(), Kind: ArtifactTable, Title: "Top customers", Result: customers},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
