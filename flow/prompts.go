package flow

import "fmt"

// Prompt is the assistant message rendered when the conversation enters a
// step.
type Prompt struct {
	Content string
	Choices []string
}

// PromptFor renders the entry prompt of a step against the current draft.
// Steps the payment coordinator owns render their own messages.
func PromptFor(step Step, draft *OrderDraft) Prompt {
	switch step {
	case StepChooseFlow:
		return Prompt{
			Content: "Parfait ! 🎉 Comment souhaitez-vous commander ?",
			Choices: []string{"Commande guidée", "Commande express"},
		}
	case StepCollectQuantity, StepExpressQuantity:
		return Prompt{Content: "Combien d'exemplaires souhaitez-vous ?", Choices: []string{"1", "2", "3"}}
	case StepCollectName, StepExpressName:
		return Prompt{Content: "À quel nom dois-je préparer la commande ? (prénom et nom)"}
	case StepCollectPhone, StepExpressContact:
		return Prompt{Content: "Quel est votre numéro de téléphone ? 📱"}
	case StepCollectCity:
		return Prompt{Content: "Dans quelle ville êtes-vous ?"}
	case StepCollectAddress, StepExpressAddress:
		return Prompt{Content: "Quelle est votre adresse de livraison ?"}
	case StepCollectEmailOpt:
		return Prompt{
			Content: "Un email pour le reçu ? (répondez \"non\" pour passer)",
			Choices: []string{"non"},
		}
	case StepCheckExisting:
		return Prompt{Content: "Je vérifie vos informations... ✨"}
	case StepSelectDelivery:
		return Prompt{Content: "Je calcule les frais de livraison pour votre ville."}
	case StepDeliveryCostNote:
		if draft != nil && draft.DeliveryCost == 0 {
			return Prompt{Content: "Bonne nouvelle : la livraison est offerte à Dakar ! 🚚"}
		}
		if draft != nil {
			return Prompt{Content: fmt.Sprintf("Les frais de livraison sont de %d FCFA.", draft.DeliveryCost)}
		}
		return Prompt{Content: "Frais de livraison calculés."}
	case StepAddNotesOpt:
		return Prompt{Content: "Souhaitez-vous ajouter une note pour la livraison ?", Choices: []string{"Oui", "Non"}}
	case StepCollectNote:
		return Prompt{Content: "Je vous écoute, quelle note dois-je ajouter ?"}
	case StepRecommendProducts:
		return Prompt{Content: "Voulez-vous découvrir nos autres jeux ?", Choices: []string{"Oui", "Non"}}
	case StepAddProduct:
		return Prompt{Content: "Voulez-vous ajouter un autre produit à votre commande ?", Choices: []string{"Oui", "Non"}}
	case StepConfirmItems:
		return Prompt{Content: summarizeItems(draft), Choices: []string{"Oui", "Non"}}
	case StepOrderSummary:
		return Prompt{Content: summarizeOrder(draft), Choices: []string{"Oui", "Non"}}
	case StepModifyOrder:
		return Prompt{
			Content: "Pas de souci, reprenons. Que voulez-vous modifier ?",
			Choices: []string{"La quantité", "Les produits"},
		}
	case StepConfirmOrder:
		return Prompt{Content: "Confirmez-vous votre commande ?", Choices: []string{"Oui, je confirme", "Non"}}
	case StepCreateAccountOpt:
		return Prompt{Content: "Voulez-vous créer un compte pour suivre vos commandes ?", Choices: []string{"Oui", "Non"}}
	case StepPaymentMethod, StepExpressPayment:
		return Prompt{Content: "Quel moyen de paiement préférez-vous ?", Choices: PaymentChoices()}
	case StepOrderConfirmed, StepExpressComplete:
		return Prompt{
			Content: "Votre commande est confirmée 🎉 Merci pour votre confiance !",
			Choices: []string{"Suivre ma commande", "Délai de livraison", "Créer un compte"},
		}
	case StepPostPurchaseSurvey, StepExpressSurvey:
		return Prompt{Content: "Comment s'est passée votre commande ? Notez de 1 à 5 ⭐", Choices: []string{"5", "4", "3", "2", "1"}}
	case StepSurveyComment:
		return Prompt{Content: "Merci ! Un commentaire à ajouter ?"}
	case StepTrackOrder:
		return Prompt{Content: "Vous recevrez un SMS avec le suivi de votre commande. 📦"}
	case StepDeliveryEta:
		return Prompt{Content: "Livraison sous 24h à Dakar, 48-72h en région."}
	case StepExpressStart:
		return Prompt{Content: "Mode express activé ⚡ On va faire vite."}
	case StepExpressSummary:
		return Prompt{Content: summarizeOrder(draft), Choices: []string{"Oui", "Non"}}
	case StepExpressUpsell:
		return Prompt{Content: "Avant de partir : nos clients aiment aussi nos autres jeux. Ça vous tente ?", Choices: []string{"Oui", "Non"}}
	case StepSessionEnd, StepExpressEnd:
		return Prompt{Content: "Merci et à très bientôt ! 👋"}
	}
	return Prompt{Content: MsgContinueFlow}
}

// Generic messages used by the orchestrator's guard paths.
const (
	MsgContinueFlow     = "Continuons votre commande 😊"
	MsgContinuePurchase = "Nous continuons votre achat. Répondez à la dernière question pour avancer 🙂"
	MsgGenericError     = "Désolé, un petit souci technique. Pouvez-vous réessayer ?"
)

func summarizeItems(draft *OrderDraft) string {
	if draft == nil || len(draft.Items) == 0 {
		return "Votre panier est vide pour le moment."
	}
	out := "Voici votre panier :\n"
	for _, it := range draft.Items {
		out += fmt.Sprintf("• %s ×%d — %d FCFA\n", it.Name, it.Quantity, it.LineTotal)
	}
	out += "\nC'est bien ça ?"
	return out
}

func summarizeOrder(draft *OrderDraft) string {
	if draft == nil {
		return "Récapitulatif indisponible."
	}
	out := "📋 Récapitulatif de votre commande :\n"
	for _, it := range draft.Items {
		out += fmt.Sprintf("• %s ×%d — %d FCFA\n", it.Name, it.Quantity, it.LineTotal)
	}
	out += fmt.Sprintf("Sous-total : %d FCFA\nLivraison : %d FCFA\nTotal : %d FCFA\n",
		draft.Subtotal, draft.DeliveryCost, draft.TotalAmount)
	if draft.Customer.FirstName != "" {
		out += fmt.Sprintf("\nLivraison pour %s %s, %s, %s\n",
			draft.Customer.FirstName, draft.Customer.LastName, draft.Customer.Address, draft.Customer.City)
	}
	out += "\nTout est bon ?"
	return out
}
