package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksPaid(t *testing.T) {
	signals := DefaultSignals()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			"digital subscription offer",
			"Get a Digital Subscription for $4.99 per month. Cancel anytime.",
			true,
		},
		{
			"price plus subscribe wording",
			"Subscribe today. Just $1 for the first month.",
			true,
		},
		{
			"newsletter only",
			"Sign up for our newsletter and get the morning briefing in your inbox.",
			false,
		},
		{
			"newsletter with commerce signal",
			"Subscribe to our newsletter. Premium edition billed at $5 per month, cancel anytime.",
			true,
		},
		{
			"no commerce signal at all",
			"Read the latest local news and weather updates.",
			false,
		},
		{
			"price but no subscription wording",
			"Tickets from $25. Buy at the box office.",
			false,
		},
		{
			"empty text",
			"",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, signals.LooksPaid(tt.text))
		})
	}
}

func TestHasPricingSignal(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"dollar amount", "only $9.99 today", true},
		{"prefixed dollar", "CA$12 per month", true},
		{"euro", "€8 monthly", true},
		{"html entity", "&#36;5 per month", true},
		{"currency code", "999 INR billed annually", true},
		{"rupee word", "pay 50 rupees weekly", true},
		{"slash cadence", "5.99/month for students", true},
		{"per cadence", "billed per month", true},
		{"thousands grouping", "save 1,299.00 today", true},
		{"plain words", "subscribe for unlimited access", false},
		{"bare number", "read 5 free articles", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPricingSignal(tt.text))
		})
	}
}

func TestLooksDynamic(t *testing.T) {
	tests := []struct {
		name string
		html string
		text string
		want bool
	}{
		{
			"react root marker",
			`<div id="root"></div>`,
			"",
			true,
		},
		{
			"next.js marker",
			`<div id="__next"></div>`,
			"",
			true,
		},
		{
			"subscribe text without static price behind scripts",
			`<script src="app.js"></script><div>Loading</div>`,
			"Choose your subscription plan",
			true,
		},
		{
			"static page with visible price",
			`<div><p>$9.99 per month</p></div>`,
			"Subscribe for $9.99 per month",
			false,
		},
		{
			"plain static page",
			`<div><p>About us</p></div>`,
			"About us",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksDynamic(tt.html, tt.text))
		})
	}
}

func TestLooksPopup(t *testing.T) {
	assert.True(t, LooksPopup(`<div role="dialog" class="paywall"></div>`))
	assert.True(t, LooksPopup(`<div class="subscribe-modal"></div>`))
	assert.False(t, LooksPopup(`<div class="content"><p>$5/month</p></div>`))
}

func TestDetectPrices(t *testing.T) {
	prices := detectPrices("Plans: 4.99/month or 49.99/year, was 1,299.00. Also 4.99/month again.")
	assert.Equal(t, []string{"4.99/month", "49.99/year", "1,299.00"}, prices)
}

func TestIsLikelySubscriptionPage(t *testing.T) {
	assert.True(t, isLikelySubscriptionPage("Subscribe for unlimited access", nil))
	assert.True(t, isLikelySubscriptionPage("Start your subscription", []string{"4.99/month"}))
	assert.False(t, isLikelySubscriptionPage("Local news and weather", nil))
}
