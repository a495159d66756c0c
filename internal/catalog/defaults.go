package catalog

// Keep ids stable: account records store them.

func defaultChallenges() []Challenge {
	return []Challenge{
		{ID: "ch1", Title: "Waste Segregation Week", Description: "Properly segregate waste at home for a full week.", Points: 50, Category: CategoryWaste},
		{ID: "ch2", Title: "DIY Compost Bin", Description: "Create your own compost bin for kitchen scraps.", Points: 75, Category: CategoryWaste},
		{ID: "ch3", Title: "Energy-Free Hour", Description: "Spend one hour without using any electricity.", Points: 30, Category: CategoryEnergy},
		{ID: "ch4", Title: "Plant a Sapling", Description: "Plant a tree in your community or backyard.", Points: 100, Category: CategoryBiodiversity},
		{ID: "ch5", Title: "Fix a Leak", Description: "Find and fix a leaking tap at home to save water.", Points: 40, Category: CategoryWater},
	}
}

func defaultBadges() []Badge {
	return []Badge{
		{ID: "b1", Name: "Eco-Starter", Description: "Complete your first challenge!", Icon: "seedling", Rule: UnlockRule{Kind: RuleFirstCompletion}},
		{ID: "b2", Name: "Challenge Champion", Description: "Complete 3 challenges.", Icon: "trophy", Rule: UnlockRule{Kind: RuleCompletionCount, Threshold: 3}},
		{ID: "b3", Name: "Point Prodigy", Description: "Earn 500 Eco-Points.", Icon: "star", Rule: UnlockRule{Kind: RulePointsThreshold, Threshold: 500}},
		{ID: "b4", Name: "Waste Warrior", Description: "Complete a waste management challenge.", Icon: "recycle", Rule: UnlockRule{Kind: RuleCategoryCompletion, Category: CategoryWaste}},
	}
}

func defaultTopics() []Topic {
	return []Topic{
		{ID: "waste", Title: "Waste Management", Description: "Learn how to reduce, reuse, and recycle.", Icon: "recycle"},
		{ID: "water", Title: "Water Conservation", Description: "Discover ways to save our most precious resource.", Icon: "droplet"},
		{ID: "energy", Title: "Renewable Energy", Description: "Explore the future of power with solar, wind, and more.", Icon: "sun"},
		{ID: "biodiversity", Title: "Protecting Biodiversity", Description: "Understand the importance of the variety of life on Earth.", Icon: "bug"},
		{ID: "climate", Title: "Climate Change", Description: "Causes, effects, and how we can take action.", Icon: "globe"},
		{ID: "fashion", Title: "Sustainable Fashion", Description: "The environmental cost of the fashion industry.", Icon: "shirt"},
		{ID: "agriculture", Title: "Sustainable Agriculture", Description: "Learn about eco-friendly farming practices.", Icon: "carrot"},
		{ID: "oceans", Title: "Ocean Conservation", Description: "Discover how to protect our marine ecosystems.", Icon: "waves"},
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultChallenges(), defaultBadges(), defaultTopics())
	if err != nil {
		panic(err)
	}
	return c
}
