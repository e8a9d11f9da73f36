package domain

const imageBaseURL = "https://images.unsplash.com/photo-"

// DefaultCatalog is the sample menu seeded into an empty store.
func DefaultCatalog() []NewDish {
	return []NewDish{
		{Name: "Pizza Margherita", ImageURL: imageBaseURL + "1565299624946-b28f40a0ae38", Published: true},
		{Name: "Caesar Salad", ImageURL: imageBaseURL + "1546793665-c74683f339c1", Published: false},
		{Name: "Spaghetti Carbonara", ImageURL: imageBaseURL + "1598866594230-a7c12756260f", Published: true},
		{Name: "Beef Burger", ImageURL: imageBaseURL + "1568901346375-23c9450c58cd", Published: true},
		{Name: "Chicken Tikka Masala", ImageURL: imageBaseURL + "1565557623262-b51c2513a641", Published: false},
		{Name: "Sushi Platter", ImageURL: imageBaseURL + "1579584425555-c3ce17fd4351", Published: true},
		{Name: "French Toast", ImageURL: imageBaseURL + "1484723091739-30a097e8f929", Published: false},
		{Name: "Grilled Salmon", ImageURL: imageBaseURL + "1467003909585-2f8a72700288", Published: true},
		{Name: "Vegetable Stir Fry", ImageURL: imageBaseURL + "1546069901-ba9599a7e63c", Published: false},
		{Name: "Chocolate Cake", ImageURL: imageBaseURL + "1578985545062-69928b1d9587", Published: true},
		{Name: "Mango Lassi", ImageURL: imageBaseURL + "1623065422902-30a2d299bbe4", Published: true},
		{Name: "Shrimp Tacos", ImageURL: imageBaseURL + "1565299585323-38d6b0865b47", Published: false},
	}
}
