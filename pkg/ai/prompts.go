package ai

// FallbackSummary stands in for a community summary the model failed to
// produce.
const FallbackSummary = "A cluster of related entities."

const SummarizerSystemPrompt = `You summarise clusters of characters in an interactive story for another model that writes the next scene. Be terse and concrete.`

const CommunityPrompt = `
# Task Context
You are an assistant that condenses one community of a narrative knowledge graph into a short briefing.

# Background Data
-- Members --
%s

-- Key relations (type:weight) --
%s

# Detailed Task Description & Rules
- Describe who holds power in the group and who is exposed, using the member names given.
- Name the tensions and tropes the relations suggest (rivalry, dependence, obsession, alliance).
- Only use the information given. Do not invent members or events.
- At most 60 words, one to three sentences.

# Output Formatting
- Return plain text only. No markdown, no lists, no introductions.
`
