package intent

import "github.com/seu-repo/concierge/internal/domain"

// defaultRules is evaluated top to bottom and the first match wins.
// The order is a contract covered by regression tests: a message with
// keywords from several topics resolves to the earliest entry.
var defaultRules = []domain.IntentRule{
	{
		Topic:           domain.TopicTrip,
		TriggerKeywords: []string{"viajar", "viagem", "destino", "praia", "montanha", "férias", "ferias", "trip", "travel"},
		ResponseTemplate: `Que ótimo que você quer viajar! 🌴

Aqui vão algumas ideias de **destinos** populares:
• **Praia**: Florianópolis, Porto de Galinhas e Jericoacoara
• **Serra**: Gramado, Campos do Jordão e Monte Verde
• **Cidade**: Rio de Janeiro, Salvador e São Paulo

Me conte o seu estilo de viagem que eu ajudo a escolher.`,
		FollowUps: []string{"Ver hotéis", "Buscar voos", "Montar roteiro"},
	},
	{
		Topic:           domain.TopicRestaurant,
		TriggerKeywords: []string{"restaurante", "comida", "comer", "jantar", "almoço", "almoco", "cardápio", "cardapio", "menu", "prato", "harmoniz"},
		ResponseTemplate: `Vamos comer bem! 🍽️

Algumas dicas para escolher um **restaurante**:
• Confira as avaliações mais recentes
• Prefira pratos típicos da região
• Reserve com antecedência no fim de semana

Posso sugerir um vinho para acompanhar?`,
		FollowUps: []string{"Harmonizar vinho", "Restaurantes baratos", "Pratos típicos"},
	},
	{
		Topic:           domain.TopicLodging,
		TriggerKeywords: []string{"hotel", "hotéis", "hoteis", "hospedagem", "pousada", "airbnb", "hostel", "hospedar"},
		ResponseTemplate: `Vamos achar um lugar para você ficar! 🏨

Opções de **hospedagem**:
• **Hotéis**: conforto e café da manhã incluso
• **Pousadas**: clima acolhedor e atendimento próximo
• **Apartamentos**: ideais para estadias longas ou em grupo

Qual é o seu orçamento por noite?`,
		FollowUps: []string{"Hospedagem barata", "Hotéis com café", "Ver destinos"},
	},
	{
		Topic:           domain.TopicFlights,
		TriggerKeywords: []string{"voo", "voos", "passagem", "passagens", "avião", "aviao", "aeroporto", "preço", "preco"},
		ResponseTemplate: `Bora voar! ✈️

Para encontrar **passagens** com bom preço:
• Pesquise com 6 a 8 semanas de antecedência
• Compare datas flexíveis (terça e quarta costumam ser mais baratas)
• Ative alertas de preço

Quer dicas para economizar na viagem toda?`,
		FollowUps: []string{"Dicas de economia", "Ver destinos", "Encontrar hotel"},
	},
	{
		Topic:           domain.TopicBudget,
		TriggerKeywords: []string{"barato", "barata", "econômico", "economico", "economizar", "orçamento", "orcamento", "promoção", "promocao"},
		ResponseTemplate: `Viajar gastando pouco é possível! 💰

**Dicas de economia**:
• Viaje na baixa temporada
• Cozinhe algumas refeições
• Use transporte público
• Prefira hospedagens com cozinha

Quer que eu monte um roteiro econômico?`,
		FollowUps: []string{"Roteiro econômico", "Hospedagem barata", "Buscar voos"},
	},
	{
		Topic:           domain.TopicItinerary,
		TriggerKeywords: []string{"roteiro", "itinerário", "itinerario", "planejar", "planejamento", "programação", "programacao"},
		ResponseTemplate: `Vamos montar seu roteiro! 🗺️

Sugestão de organização:
• **Dia 1**: chegada e passeio pelo centro
• **Dia 2**: principais atrações
• **Dia 3**: experiências locais e gastronomia

Quantos dias você tem disponíveis?`,
		FollowUps: []string{"Roteiro de 3 dias", "Roteiro de 1 semana", "Ver restaurantes"},
	},
	{
		Topic:           domain.TopicGeneralTips,
		TriggerKeywords: []string{"dica", "dicas", "sugestão", "sugestao", "recomenda", "conselho"},
		ResponseTemplate: `Aqui vão algumas dicas gerais! 💡

• Leve cópias digitais dos seus documentos
• Tenha sempre um pouco de dinheiro em espécie
• Confira a previsão do tempo antes de sair
• Salve mapas offline no celular

Sobre o que mais você quer saber?`,
		FollowUps: []string{"Ver destinos", "Dicas de economia", "Montar roteiro"},
	},
	{
		Topic:           domain.TopicHelp,
		TriggerKeywords: []string{"ajuda", "ajudar", "help", "como funciona", "o que você faz", "o que voce faz"},
		ResponseTemplate: `Estou aqui para ajudar! 🤝

Posso te ajudar com:
• **Destinos** e ideias de viagem
• **Hospedagem** e **voos**
• **Restaurantes** e harmonizações
• **Roteiros** e dicas de economia

É só me dizer o que você precisa.`,
		FollowUps: []string{"Ver destinos", "Encontrar restaurantes", "Dicas de viagem"},
	},
}

var fallbackRule = domain.IntentRule{
	Topic: domain.TopicDefault,
	ResponseTemplate: `Interessante! 🤔

Ainda estou aprendendo, mas posso ajudar com viagens, restaurantes, hospedagem e roteiros.

Tente uma das sugestões abaixo.`,
	FollowUps: []string{"Ver destinos", "Encontrar restaurantes", "Preciso de ajuda"},
}
