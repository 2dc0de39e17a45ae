package agg

// Spyfish Aotearoa workflow layout: species events live in survey task T0,
// with follow-up answers keyed HOWMANY and FIRSTTIMESEEN.
const (
	spyfishSurveyTask   = "T0"
	spyfishHowManyKey   = "HOWMANY"
	spyfishFirstSeenKey = "FIRSTTIMESEEN"
)

// SpyfishExtractor reads clip observations from Spyfish Aotearoa
// classifications.
type SpyfishExtractor struct{}

func (SpyfishExtractor) Name() string { return "spyfish" }

func (SpyfishExtractor) Extract(c Classification) ([]ClipObservation, error) {
	choices, err := surveyChoices(c, spyfishSurveyTask)
	if err != nil {
		return nil, err
	}

	var obs []ClipObservation
	for _, ch := range choices {
		howMany, err := answerValue(ch.Answers, spyfishHowManyKey, 1)
		if err != nil {
			return nil, err
		}
		firstSeen, err := answerValue(ch.Answers, spyfishFirstSeenKey, 0)
		if err != nil {
			return nil, err
		}
		obs = append(obs, ClipObservation{
			Label:     ch.Choice,
			FirstSeen: firstSeen,
			HowMany:   howMany,
		})
	}
	return obs, nil
}

func init() {
	RegisterExtractor(SpyfishExtractor{})
}
