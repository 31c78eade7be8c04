package tui

import "math/rand"

var quotes = []string{
	"The secret of getting ahead is getting started.",
	"Focus on being productive instead of busy.",
	"Small daily improvements are the key to staggering long-term results.",
	"You don't have to see the whole staircase, just take the first step.",
	"Discipline is choosing between what you want now and what you want most.",
	"It always seems impossible until it's done.",
	"Study while others are sleeping; work while others are loafing.",
	"Success is the sum of small efforts, repeated day in and day out.",
	"The expert in anything was once a beginner.",
	"Don't watch the clock; do what it does. Keep going.",
}

var subjectColors = []string{"#FF6B9D", "#6C63FF", "#2EC4B6", "#FF6B6B", "#F39C12", "#2ECC71", "#9B59B6", "#3498DB"}

func randomQuote(r *rand.Rand) string {
	return quotes[r.Intn(len(quotes))]
}

func randomColor(r *rand.Rand) string {
	return subjectColors[r.Intn(len(subjectColors))]
}
