package flow

import (
	"strings"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
)

// Choice is the canonical result of classifying free input against a
// step vocabulary.
type Choice string

const ChoiceUnmatched Choice = ""

// Normalize lowercases and trims input so button labels and free-typed
// equivalents classify the same way.
func Normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// Classify matches normalized input against a vocabulary by substring,
// first vocabulary entry whose keyword occurs wins. Every step validator
// that resolves a button-or-text choice goes through here.
func Classify(input string, vocabulary map[Choice][]string) Choice {
	norm := Normalize(input)
	if norm == "" {
		return ChoiceUnmatched
	}
	for choice, keywords := range vocabulary {
		for _, kw := range keywords {
			if strings.Contains(norm, kw) {
				return choice
			}
		}
	}
	return ChoiceUnmatched
}

// Yes/no classification shared by every binary step.
const (
	ChoiceYes Choice = "yes"
	ChoiceNo  Choice = "no"
)

var yesNoVocabulary = map[Choice][]string{
	ChoiceYes: {"oui", "yes", "ok", "d'accord", "daccord", "bien sûr", "bien sur", "volontiers", "✅", "👍"},
	ChoiceNo:  {"non", "no", "pas ", "plus tard", "jamais", "❌", "👎"},
}

// ClassifyYesNo resolves yes/no style answers by keyword, not equality.
func ClassifyYesNo(input string) Choice {
	// "oui" inside "non, oui plus tard" would misfire on map ordering;
	// check negations first.
	norm := Normalize(input)
	for _, kw := range yesNoVocabulary[ChoiceNo] {
		if strings.Contains(norm, kw) {
			return ChoiceNo
		}
	}
	for _, kw := range yesNoVocabulary[ChoiceYes] {
		if strings.Contains(norm, kw) {
			return ChoiceYes
		}
	}
	return ChoiceUnmatched
}

var providerVocabulary = map[entity.PaymentProvider][]string{
	entity.ProviderWave:           {"wave"},
	entity.ProviderOrangeMoney:    {"orange", "om"},
	entity.ProviderCard:           {"carte", "card", "visa", "mastercard", "cb"},
	entity.ProviderCashOnDelivery: {"livraison", "cash", "espèce", "espece", "paiement à la livraison"},
}

// providerOrder fixes iteration order so "om" can never shadow "wave"
// nondeterministically.
var providerOrder = []entity.PaymentProvider{
	entity.ProviderWave,
	entity.ProviderOrangeMoney,
	entity.ProviderCard,
	entity.ProviderCashOnDelivery,
}

// ClassifyProvider resolves a payment method choice against the fixed
// provider vocabulary. Empty result means re-prompt with the same choices.
func ClassifyProvider(input string) entity.PaymentProvider {
	norm := Normalize(input)
	for _, p := range providerOrder {
		for _, kw := range providerVocabulary[p] {
			if strings.Contains(norm, kw) {
				return p
			}
		}
	}
	return ""
}

// PaymentChoices are the labels re-prompted on an unmatched method answer.
func PaymentChoices() []string {
	return []string{"Wave", "Orange Money", "Carte bancaire", "Paiement à la livraison"}
}

// Top-level menu choices a user can send from anywhere; matching one keeps
// the message out of the free-text responder.
var menuChoices = map[Choice][]string{
	"buy_now":      {"je veux l'acheter", "acheter maintenant", "je le veux", "commander"},
	"see_product":  {"voir le produit", "en savoir plus", "infos produit"},
	"track_order":  {"suivre ma commande", "où est ma commande", "ou est ma commande"},
	"delivery_eta": {"délai de livraison", "delai de livraison", "quand serai-je livré"},
}

// ClassifyMenu matches the small set of predefined top-level menu choices.
func ClassifyMenu(input string) Choice {
	return Classify(input, menuChoices)
}
