package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkdownThreeDays(t *testing.T) {
	raw := `# Weekly Plan
## Day 1
### Breakfast - Oatmeal
- rolled oats
- almond milk
Calories: 350 kcal
### Lunch
- lentil soup
## Day 2
### Dinner
- grilled tofu
## Day 3
### Breakfast
- smoothie
`

	res := Parse(raw)
	require.True(t, res.Parsed())
	require.Len(t, res.Record.Days, 3)
	assert.Equal(t, "Weekly Plan", res.Record.Title)
	assert.Equal(t, "Day 1", res.Record.Days[0].Label)
	assert.Equal(t, "Day 3", res.Record.Days[2].Label)

	day1 := res.Record.Days[0]
	require.Len(t, day1.Meals, 2)
	assert.Equal(t, "Breakfast", day1.Meals[0].Name)
	assert.Equal(t, "Oatmeal", day1.Meals[0].Description)
	assert.Equal(t, 350, day1.Meals[0].Calories)
	assert.Equal(t, []string{"rolled oats", "almond milk"}, day1.Meals[0].Ingredients)
}

func TestParseMealHeaderVariants(t *testing.T) {
	cases := []struct {
		name string
		line string
		meal string
		desc string
	}{
		{"heading", "### Breakfast - Oatmeal", "Breakfast", "Oatmeal"},
		{"bold", "**Lunch:** Quinoa salad", "Lunch", "Quinoa salad"},
		{"bullet", "- Dinner: Grilled salmon", "Dinner", "Grilled salmon"},
		{"plain", "Snack: Apple with peanut butter", "Snack", "Apple with peanut butter"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Parse("## Day 1\n" + tc.line + "\n")
			require.True(t, res.Parsed())
			require.Len(t, res.Record.Days, 1)
			require.Len(t, res.Record.Days[0].Meals, 1)
			assert.Equal(t, tc.meal, res.Record.Days[0].Meals[0].Name)
			assert.Equal(t, tc.desc, res.Record.Days[0].Meals[0].Description)
		})
	}
}

func TestParseDayHeaderVariants(t *testing.T) {
	for _, line := range []string{"## Day 1", "# Day 1", "**Day 1**", "Day 1: Monday", "DAY 1"} {
		res := Parse(line + "\n")
		require.True(t, res.Parsed(), "line %q should produce a day", line)
		require.Len(t, res.Record.Days, 1)
		assert.Equal(t, "Day 1", res.Record.Days[0].Label)
	}
}

func TestParseSections(t *testing.T) {
	raw := `## Day 1
### Breakfast
- eggs

## Shopping List
- eggs
- spinach

## Prep Tips
- Cook grains ahead of time
`

	res := Parse(raw)
	require.True(t, res.Parsed())
	assert.Equal(t, []string{"eggs", "spinach"}, res.Record.ShoppingList)
	assert.Equal(t, []string{"Cook grains ahead of time"}, res.Record.PrepTips)
}

func TestParseDayTotalCalories(t *testing.T) {
	raw := `## Day 1
Total: 1800 calories
### Breakfast
- Calories: 400 kcal
- toast
`

	res := Parse(raw)
	require.True(t, res.Parsed())
	assert.Equal(t, 1800, res.Record.Days[0].Calories)
	require.Len(t, res.Record.Days[0].Meals, 1)
	assert.Equal(t, 400, res.Record.Days[0].Meals[0].Calories)
	assert.Equal(t, []string{"toast"}, res.Record.Days[0].Meals[0].Ingredients)
}

func TestParseIgnoresAmountBullets(t *testing.T) {
	// "200 cal" shapes inside an ingredient line must not be confused
	// with a calorie total.
	raw := `## Day 1
### Lunch
- 200g chicken breast
`

	res := Parse(raw)
	require.True(t, res.Parsed())
	meal := res.Record.Days[0].Meals[0]
	assert.Zero(t, meal.Calories)
	assert.Equal(t, []string{"200g chicken breast"}, meal.Ingredients)
}

func TestParseUnparsedFallback(t *testing.T) {
	raw := "Sorry, I could not generate a plan today. Please try again."

	res := Parse(raw)
	assert.False(t, res.Parsed())
	assert.Nil(t, res.Record)
	assert.Equal(t, raw, res.Raw)
}

func TestParseUnknownLinesDropped(t *testing.T) {
	raw := `Here is your plan, enjoy!
## Day 1
some free-form commentary the model added
### Breakfast
- eggs
random trailing note
`

	res := Parse(raw)
	require.True(t, res.Parsed())
	require.Len(t, res.Record.Days, 1)
	require.Len(t, res.Record.Days[0].Meals, 1)
	assert.Equal(t, []string{"eggs"}, res.Record.Days[0].Meals[0].Ingredients)
}

func TestParseJSONRoundTrip(t *testing.T) {
	rec := &PlanRecord{
		Title: "High Protein Week",
		Days: []Day{
			{
				Label:    "Day 1",
				Calories: 2100,
				Meals: []Meal{
					{Name: "Breakfast", Description: "Greek yogurt bowl", Calories: 450, Ingredients: []string{"greek yogurt", "berries"}},
				},
			},
		},
		ShoppingList: []string{"greek yogurt", "berries"},
		PrepTips:     []string{"Portion yogurt the night before"},
	}

	serialized, err := Serialize(rec)
	require.NoError(t, err)

	res := Parse(serialized)
	require.True(t, res.Parsed())
	assert.Equal(t, rec, res.Record)
}

func TestParseMarkdownWithEmbeddedJSONFragment(t *testing.T) {
	// A stray valid JSON fragment inside markdown must not win over the
	// day sections around it.
	raw := "Macros per serving: {\"protein\": 30}\n## Day 1\n### Breakfast\n- eggs\n"

	res := Parse(raw)
	require.True(t, res.Parsed())
	require.Len(t, res.Record.Days, 1)
	require.Len(t, res.Record.Days[0].Meals, 1)
	assert.Equal(t, "Breakfast", res.Record.Days[0].Meals[0].Name)
	assert.Equal(t, []string{"eggs"}, res.Record.Days[0].Meals[0].Ingredients)
}

func TestParseEmptyJSONObjectFallsThrough(t *testing.T) {
	res := Parse("{}")
	assert.False(t, res.Parsed())
	assert.Equal(t, "{}", res.Raw)
}

func TestParseJSONWrappedInProse(t *testing.T) {
	raw := "Here is the plan you asked for:\n```json\n" +
		`{"title":"Plan","days":[{"label":"Day 1","meals":null}]}` +
		"\n```\nEnjoy!"

	res := Parse(raw)
	require.True(t, res.Parsed())
	assert.Equal(t, "Plan", res.Record.Title)
	require.Len(t, res.Record.Days, 1)
}

func TestParsePartialStillStructured(t *testing.T) {
	// A lone recognized day header is enough for a (sparse) record.
	res := Parse("## Day 1\nnothing else matched here\n")
	require.True(t, res.Parsed())
	require.Len(t, res.Record.Days, 1)
	assert.Empty(t, res.Record.Days[0].Meals)
}
