package classify

// Objection categories in tie-break order.
const (
	ObjectionPrice      = "PRICE"
	ObjectionTiming     = "TIMING"
	ObjectionCompetitor = "COMPETITOR"
	ObjectionAuthority  = "AUTHORITY"
	ObjectionNeed       = "NEED"
	ObjectionTrust      = "TRUST"
)

// Question categories in tie-break order.
const (
	QuestionProduct        = "PRODUCT"
	QuestionPricing        = "PRICING"
	QuestionImplementation = "IMPLEMENTATION"
	QuestionSupport        = "SUPPORT"
	QuestionTechnical      = "TECHNICAL"
)

// Buying-signal categories in tie-break order.
const (
	SignalCommitment  = "COMMITMENT"
	SignalNextSteps   = "NEXT_STEPS"
	SignalPositiveFit = "POSITIVE_FIT"
	SignalUrgency     = "URGENCY"
)

func cues(pairs ...any) []Cue {
	out := make([]Cue, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Cue{Phrase: pairs[i].(string), Weight: pairs[i+1].(float64)})
	}
	return out
}

// DefaultLexicon returns a fresh copy of the built-in lexicon.
// Single generic words weigh 0.5–1.5; explicit phrases weigh 2–3.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Objection: Taxonomy{
			{ObjectionPrice, cues(
				"expensive", 1.5, "pricey", 1.5, "price", 0.5, "cost", 0.5, "costs", 0.5, "budget", 1.0,
				"cheaper", 1.5, "too expensive", 2.0, "too much money", 2.0, "over budget", 2.0,
				"costs too much", 2.5, "can't afford", 2.5, "cannot afford", 2.5, "out of our budget", 2.5,
				"over our budget", 2.5, "no budget", 2.5, "don't have the budget", 2.5,
				"not in the budget", 2.5, "price is too high", 3.0,
			)},
			{ObjectionTiming, cues(
				"later", 1.0, "timing", 1.5, "revisit", 1.5, "circle back", 1.5, "wait until", 1.5,
				"bad time", 2.0, "next quarter", 2.0, "next year", 2.0, "too busy", 2.0, "hold off", 2.0,
				"not ready", 2.0, "not right now", 2.5, "not a good time", 2.5, "not a priority", 2.5,
			)},
			{ObjectionCompetitor, cues(
				"alternative", 1.0, "alternatives", 1.0, "other options", 1.5, "contract with", 1.5,
				"competitor", 2.0, "competitors", 2.0, "already use", 2.0, "already using", 2.0,
				"other vendor", 2.0, "other vendors", 2.0, "current provider", 2.0, "locked into", 2.0,
				"another vendor", 2.5, "shopping around", 2.5, "happy with our current", 2.5,
			)},
			{ObjectionAuthority, cues(
				"my team", 1.0, "legal", 1.5, "approval", 1.5, "leadership", 1.5, "talk to my", 1.5,
				"my boss", 2.0, "my manager", 2.0, "check with", 2.0, "the board", 2.0, "procurement", 2.0,
				"sign off", 2.0, "run it by", 2.5, "run this by", 2.5, "decision maker", 2.5,
				"get approval", 2.5, "not my decision", 3.0,
			)},
			{ObjectionNeed, cues(
				"we manage", 1.5, "no need", 2.0, "not necessary", 2.0, "works fine", 2.0,
				"we're fine", 2.0, "we are fine", 2.0, "overkill", 2.0, "don't need", 2.5,
				"do not need", 2.5, "not interested", 2.5, "doesn't fit", 2.5, "not relevant", 2.5,
				"not sure we need", 2.5, "not a problem for us", 3.0,
			)},
			{ObjectionTrust, cues(
				"risk", 1.0, "concern", 1.0, "concerned", 1.5, "references", 1.5, "case study", 1.5,
				"case studies", 1.5, "guarantee", 1.5, "proven", 1.5, "not sure about", 1.5,
				"skeptical", 2.0, "risky", 2.0, "track record", 2.0, "never heard of", 2.5,
				"sounds too good", 2.5, "burned before", 2.5, "don't trust", 2.5,
			)},
		},
		Question: Taxonomy{
			{QuestionProduct, cues(
				"product", 1.0, "does it", 1.0, "how does", 1.0, "work with", 1.0, "feature", 1.5,
				"features", 1.5, "can it", 1.5, "demo", 1.5, "dashboard", 1.5, "reporting", 1.5,
				"capability", 1.5, "capabilities", 1.5, "functionality", 1.5, "use case", 1.5,
				"roadmap", 1.5, "customize", 1.5, "customization", 1.5,
			)},
			{QuestionPricing, cues(
				"plan", 1.0, "plans", 1.0, "budget", 1.0, "license", 1.5, "licensing", 1.5,
				"subscription", 1.5, "tier", 1.5, "tiers", 1.5, "contract", 1.5, "billing", 1.5,
				"invoice", 1.5, "payment", 1.5, "roi", 1.5, "price", 2.0, "pricing", 2.0, "cost", 2.0,
				"costs", 2.0, "discount", 2.0, "discounts", 2.0, "per seat", 2.0, "per user", 2.0,
				"how much", 2.5,
			)},
			{QuestionImplementation, cues(
				"start", 1.0, "started", 1.0, "deploy", 1.5, "deployment", 1.5, "training", 1.5,
				"implementation", 2.0, "implement", 2.0, "onboarding", 2.0, "onboard", 2.0,
				"rollout", 2.0, "roll out", 2.0, "migrate", 2.0, "migration", 2.0, "timeline", 2.0,
				"how long", 2.0, "set up", 2.0, "setup", 2.0, "kickoff", 2.0, "get started", 2.5,
				"getting started", 2.5, "go live", 2.5, "up and running", 2.5,
			)},
			{QuestionSupport, cues(
				"help", 1.0, "uptime", 1.5, "maintenance", 1.5, "reach you", 1.5, "what happens if", 1.5,
				"support", 2.0, "customer success", 2.0, "help desk", 2.0, "sla", 2.0,
				"response time", 2.0, "account manager", 2.0, "troubleshooting", 2.0, "outage", 2.0,
			)},
			{QuestionTechnical, cues(
				"data", 1.0, "cloud", 1.0, "scale", 1.0, "export", 1.0, "security", 1.5,
				"compliance", 1.5, "database", 1.5, "hosting", 1.5, "crm", 1.5, "api", 2.0,
				"integration", 2.0, "integrations", 2.0, "integrate", 2.0, "encryption", 2.0,
				"sso", 2.0, "gdpr", 2.0, "soc", 2.0, "architecture", 2.0, "on premise", 2.0,
				"on prem", 2.0, "latency", 2.0, "scalability", 2.0, "webhook", 2.0, "webhooks", 2.0,
				"single sign on", 2.5,
			)},
		},
		BuyingSignal: Taxonomy{
			{SignalCommitment, cues(
				"proceed", 1.5, "on board", 1.5, "sign up", 2.0, "go ahead", 2.0, "we're in", 2.0,
				"move forward", 2.5, "ready to move", 2.5, "purchase order", 2.5, "let's do it", 3.0,
				"let's do this", 3.0, "sign the contract", 3.0, "send the contract", 3.0,
				"send over the contract", 3.0, "count us in", 3.0, "ready to buy", 3.0,
				"we'll take it", 3.0, "we want to proceed", 3.0,
			)},
			{SignalNextSteps, cues(
				"send me", 1.5, "send over", 1.5, "send us", 1.5, "follow up", 1.5, "schedule", 1.5,
				"book a", 1.5, "quote", 1.5, "trial", 1.5, "what's next", 2.0, "set up a call", 2.0,
				"loop in", 2.0, "introduce you", 2.0, "proposal", 2.0, "pilot", 2.0,
				"next step", 2.5, "next steps", 2.5,
			)},
			{SignalPositiveFit, cues(
				"really like", 1.5, "impressed", 1.5, "sounds great", 1.5, "this is great", 1.5,
				"love this", 2.0, "love that", 2.0, "game changer", 2.0, "that would solve", 2.5,
				"this would solve", 2.5, "makes sense for us", 2.5, "great fit", 2.5, "perfect fit", 2.5,
				"exactly what we need", 3.0, "exactly what we're looking for", 3.0,
			)},
			{SignalUrgency, cues(
				"this week", 1.5, "this month", 1.5, "this quarter", 1.5, "deadline", 1.5,
				"before the end of", 1.5, "right away", 2.0, "urgent", 2.0, "urgently", 2.0,
				"how soon", 2.0, "as soon as possible", 2.5, "asap", 2.5, "need it by", 2.5,
				"need this by", 2.5,
			)},
		},
		Intensity: cues(
			"when can we", 1.0, "how soon", 1.0, "get started", 1.0, "getting started", 1.0,
			"start", 1.0, "sign", 1.0, "contract", 1.0, "next step", 1.0, "next steps", 1.0,
			"discount", 1.0, "trial", 1.0, "go live", 1.0, "onboard", 1.0, "onboarding", 1.0,
			"timeline", 1.0, "purchase", 1.0, "buy", 1.0, "this week", 1.0, "this month", 1.0,
		),
		Interrogatives: []string{
			"what", "what's", "when", "where", "who", "why", "how", "which", "can", "could",
			"would", "will", "do", "does", "did", "is", "are", "should", "may", "have", "has",
		},
		Positive: cues(
			"great", 1.0, "good", 1.0, "love", 1.0, "excellent", 1.0, "perfect", 1.0, "helpful", 1.0,
			"useful", 1.0, "impressed", 1.0, "excited", 1.0, "awesome", 1.0, "amazing", 1.0,
			"fantastic", 1.0, "interesting", 1.0, "happy", 1.0, "glad", 1.0, "easy", 1.0, "nice", 1.0,
			"agree", 1.0, "absolutely", 1.0, "definitely", 1.0, "valuable", 1.0, "wonderful", 1.0,
			"thanks", 0.5, "thank you", 0.5, "sounds good", 1.5, "makes sense", 1.5,
		),
		Negative: cues(
			"expensive", 1.0, "bad", 1.0, "problem", 1.0, "problems", 1.0, "issue", 1.0, "issues", 1.0,
			"concern", 1.0, "concerned", 1.0, "worried", 1.0, "difficult", 1.0, "hard", 1.0,
			"confusing", 1.0, "frustrated", 1.0, "frustrating", 1.0, "annoying", 1.0,
			"disappointed", 1.0, "hate", 1.0, "terrible", 1.0, "awful", 1.0, "slow", 1.0,
			"complicated", 1.0, "risky", 1.0, "unfortunately", 1.0, "unhappy", 1.0, "doubt", 1.0,
			"skeptical", 1.0, "too much", 1.0, "not sure", 1.0, "can't afford", 1.5,
		),
	}
}
