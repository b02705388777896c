package catalog

// Default returns a Store seeded with the built-in sample inventory. Used
// when the configuration declares no product blocks, and by tests that need
// a realistic catalog.
func Default() *Store {
	return New([]Product{
		{
			ID: "1", Name: "Gaming Laptop Pro", Category: "Electronics",
			Price: 1299.99, Rating: 4.5,
			Features:    []string{"16GB RAM", "RTX 4060", "144Hz Display"},
			Description: "High-performance gaming laptop",
			Stock:       15, Tags: []string{"gaming", "laptop", "performance"},
		},
		{
			ID: "2", Name: "Wireless Headphones Elite", Category: "Electronics",
			Price: 299.99, Rating: 4.7,
			Features:    []string{"Noise Cancellation", "30h Battery", "Bluetooth 5.0"},
			Description: "Premium wireless headphones",
			Stock:       25, Tags: []string{"audio", "wireless", "premium"},
		},
		{
			ID: "3", Name: "Smart Fitness Watch", Category: "Wearables",
			Price: 249.99, Rating: 4.3,
			Features:    []string{"Heart Rate Monitor", "GPS", "Water Resistant"},
			Description: "Advanced fitness tracking watch",
			Stock:       30, Tags: []string{"fitness", "smart", "health"},
		},
		{
			ID: "4", Name: "Coffee Maker Deluxe", Category: "Home",
			Price: 89.99, Rating: 4.2,
			Features:    []string{"Programmable", "12-cup capacity", "Auto-shutoff"},
			Description: "Premium coffee brewing system",
			Stock:       20, Tags: []string{"coffee", "kitchen", "appliance"},
		},
		{
			ID: "5", Name: "Gaming Mouse RGB", Category: "Electronics",
			Price: 79.99, Rating: 4.6,
			Features:    []string{"12000 DPI", "RGB Lighting", "Ergonomic"},
			Description: "Professional gaming mouse",
			Stock:       40, Tags: []string{"gaming", "mouse", "rgb"},
		},
		{
			ID: "6", Name: "Bluetooth Speaker", Category: "Electronics",
			Price: 149.99, Rating: 4.4,
			Features:    []string{"360 Sound", "Waterproof", "20h Battery"},
			Description: "Portable high-quality speaker",
			Stock:       35, Tags: []string{"audio", "portable", "bluetooth"},
		},
	})
}
