// Package templates holds the built-in canned coaching content used when
// the completion backend is unavailable or a category has a scripted
// answer. Content rotates so repeated fallbacks don't read identically.
package templates

import (
	"sync"
	"sync/atomic"

	"github.com/emberfit/coach/pkg/provider"
	"github.com/emberfit/coach/pkg/types"
)

// StaticProvider serves built-in templates. Lookups rotate through the
// variants registered for a (category, subcategory) pair.
type StaticProvider struct {
	mu       sync.RWMutex
	content  map[templateKey][]provider.TemplateContent
	counters map[templateKey]*atomic.Uint64
}

type templateKey struct {
	category    types.Category
	subcategory string
}

// NewStaticProvider creates a provider preloaded with the default
// coaching copy. Additional variants can be registered with Register.
func NewStaticProvider() *StaticProvider {
	p := &StaticProvider{
		content:  make(map[templateKey][]provider.TemplateContent),
		counters: make(map[templateKey]*atomic.Uint64),
	}
	for cat, variants := range defaultContent {
		for _, v := range variants {
			p.Register(cat, "", v)
		}
	}
	return p
}

// Register adds a content variant for a category. Safe for concurrent use.
func (p *StaticProvider) Register(category types.Category, subcategory string, content provider.TemplateContent) {
	key := templateKey{category, subcategory}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.content[key] = append(p.content[key], content)
	if _, ok := p.counters[key]; !ok {
		p.counters[key] = &atomic.Uint64{}
	}
}

// Lookup returns the next content variant for the category, falling back
// to the general category when the requested one has no templates.
func (p *StaticProvider) Lookup(category types.Category, subcategory string) (provider.TemplateContent, bool) {
	if c, ok := p.next(templateKey{category, subcategory}); ok {
		return c, true
	}
	if subcategory != "" {
		if c, ok := p.next(templateKey{category, ""}); ok {
			return c, true
		}
	}
	if category != types.CategoryGeneral {
		if c, ok := p.next(templateKey{types.CategoryGeneral, ""}); ok {
			return c, true
		}
	}
	return provider.TemplateContent{}, false
}

func (p *StaticProvider) next(key templateKey) (provider.TemplateContent, bool) {
	p.mu.RLock()
	variants := p.content[key]
	counter := p.counters[key]
	p.mu.RUnlock()

	if len(variants) == 0 {
		return provider.TemplateContent{}, false
	}
	n := counter.Add(1) - 1
	return variants[n%uint64(len(variants))], true
}

var defaultContent = map[types.Category][]provider.TemplateContent{
	types.CategoryGeneral: {
		{
			Text:        "I'm having trouble reaching my full knowledge right now, but I'm still here. Could you tell me a bit more about what you're working on today?",
			Suggestions: []string{"Review my goals", "Log a workout", "Check my progress"},
		},
		{
			Text:        "Let me make sure I understand what you need. What's the main thing you'd like help with right now?",
			Suggestions: []string{"Plan my week", "Talk about motivation", "Ask a health question"},
		},
		{
			Text:        "I didn't quite catch that, but let's keep going. What would be most useful to focus on?",
			Suggestions: []string{"My training plan", "Nutrition ideas", "Sleep habits"},
		},
	},
	types.CategoryWorkout: {
		{
			Text:        "Consistency beats intensity. Even a short session today keeps the habit alive. What kind of training are you in the mood for?",
			Suggestions: []string{"Suggest a quick workout", "Plan a rest day", "Review last session"},
		},
		{
			Text:        "Listen to your body: if you're sore, light movement and mobility work still count as training. Want a low-impact option?",
			Suggestions: []string{"Show a recovery routine", "Plan tomorrow's session"},
		},
	},
	types.CategoryNutrition: {
		{
			Text:        "Small, repeatable changes to your meals outlast any strict diet. Is there one meal you'd like to improve first?",
			Suggestions: []string{"Breakfast ideas", "Post-workout snacks", "Hydration tips"},
		},
	},
	types.CategorySleep: {
		{
			Text:        "A consistent wind-down routine is the single biggest lever for better sleep. What does your last hour before bed usually look like?",
			Suggestions: []string{"Build a wind-down routine", "Review my sleep trend"},
		},
	},
	types.CategoryMotivation: {
		{
			Text:        "Progress is rarely a straight line. Look back at where you started, not just where you want to be. What felt hard this week?",
			Suggestions: []string{"Celebrate a win", "Adjust my goals", "Plan something easy"},
		},
	},
	types.CategoryHealthConcern: {
		{
			Text:        "That sounds worth taking seriously. I can help with training and habits, but for pain, dizziness, or anything that worries you, please check in with a medical professional.",
			Suggestions: []string{"Find lower-impact alternatives", "Plan a recovery week"},
		},
	},
}
