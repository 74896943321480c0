// Package sources lists what each flow collects.
package sources

// DefaultFetchLimit caps records requested per source query.
const DefaultFetchLimit = 100

type NewsCategory struct {
	Name  string
	Query string
}

var NewsCategories = []NewsCategory{
	{Name: "core_financial", Query: "stocks OR earnings OR investment OR market trend OR merger OR acquisition OR financial report"},
	{Name: "macro_politics", Query: "politics OR election OR central bank OR Fed OR policy OR legislature OR government spending OR opinion column"},
	{Name: "behavioral_mood", Query: "World Cup OR NBA Finals OR Olympics OR celebrity OR movie review OR music industry OR award ceremony OR athlete"},
	{Name: "innovation_tech", Query: "AI OR tech innovation OR medical breakthrough OR space exploration OR corporate scandal OR data breach OR investigation"},
	{Name: "general_sentiment", Query: "lifestyle OR travel OR health trend OR social issue OR climate change OR crime OR court verdict"},
}

type Subreddit struct {
	Name   string
	Flairs []string
}

var Subreddits = []Subreddit{
	{Name: "TrueReddit", Flairs: []string{"Business + Economics", "Energy + Environment", "Technology"}},
	{Name: "StockMarket", Flairs: []string{"News", "Analysis", "Opinion"}},
	{Name: "technology", Flairs: []string{"Artificial Intelligence", "Business", "Software", "Security"}},
	{Name: "news"},
	{Name: "FinanceNews"},
}

var StockTickers = []string{
	"AAPL", "AMD", "NVDA", "TSLA", "SNOW", "MSFT", "ORCL", "META",
	"SAP", "CSCO", "SHEL", "MCD", "UBER", "QCOM", "INTC",
}

// CompanyNames backs the company seed.
var CompanyNames = map[string]string{
	"AAPL": "Apple Inc.",
	"AMD":  "Advanced Micro Devices, Inc.",
	"NVDA": "NVIDIA Corporation",
	"TSLA": "Tesla, Inc.",
	"SNOW": "Snowflake Inc.",
	"MSFT": "Microsoft Corporation",
	"ORCL": "Oracle Corporation",
	"META": "Meta Platforms, Inc.",
	"SAP":  "SAP SE",
	"CSCO": "Cisco Systems, Inc.",
	"SHEL": "Shell plc",
	"MCD":  "McDonald's Corporation",
	"UBER": "Uber Technologies, Inc.",
	"QCOM": "QUALCOMM Incorporated",
	"INTC": "Intel Corporation",
}

// Category returns the named news category.
func Category(name string) (NewsCategory, bool) {
	for _, c := range NewsCategories {
		if c.Name == name {
			return c, true
		}
	}
	return NewsCategory{}, false
}
