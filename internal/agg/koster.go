package agg

// Koster workflow layout: species events live in survey task T4, with
// follow-up answers keyed HOWMANY and EARLIESTPOINT.
const (
	kosterSurveyTask    = "T4"
	kosterHowManyKey    = "HOWMANY"
	kosterFirstSeenKey  = "EARLIESTPOINT"
	kosterDefaultCount  = 1
	kosterDefaultOffset = 0
)

// KosterExtractor reads clip observations from Koster Seafloor Observatory
// classifications.
type KosterExtractor struct{}

func (KosterExtractor) Name() string { return "koster" }

func (KosterExtractor) Extract(c Classification) ([]ClipObservation, error) {
	choices, err := surveyChoices(c, kosterSurveyTask)
	if err != nil {
		return nil, err
	}

	var obs []ClipObservation
	for _, ch := range choices {
		howMany, err := answerValue(ch.Answers, kosterHowManyKey, kosterDefaultCount)
		if err != nil {
			return nil, err
		}
		firstSeen, err := answerValue(ch.Answers, kosterFirstSeenKey, kosterDefaultOffset)
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
	RegisterExtractor(KosterExtractor{})
}
