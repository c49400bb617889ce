package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_FromSubject(t *testing.T) {
	engine := NewEngine("ARS")

	tests := []struct {
		name         string
		subject      string
		wantMerchant string
		wantCurrency string
		wantAmount   string
		wantLast4    string
		wantUsable   bool
	}{
		{
			name:         "full subject template",
			subject:      "Compra aprobada en RAPPI ARGENTINA por ARS 1.234,56 con tarjeta terminada en 1234",
			wantMerchant: "RAPPI ARGENTINA",
			wantCurrency: "ARS",
			wantAmount:   "1234.56",
			wantLast4:    "1234",
			wantUsable:   true,
		},
		{
			name:         "subject without card tail",
			subject:      "Compra aprobada en MERPAGO*CAFE por $ 81,91",
			wantMerchant: "MERPAGO*CAFE",
			wantCurrency: "ARS",
			wantAmount:   "81.91",
			wantUsable:   true,
		},
		{
			name:         "usd purchase",
			subject:      "Compra autorizada en NETFLIX.COM por U$S 20,50",
			wantMerchant: "NETFLIX.COM",
			wantCurrency: "USD",
			wantAmount:   "20.50",
			wantUsable:   true,
		},
		{
			name:       "unrelated subject",
			subject:    "Resumen de cuenta disponible",
			wantUsable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.FromSubject(tt.subject)
			assert.Equal(t, tt.wantUsable, result.Usable())
			if !tt.wantUsable {
				return
			}
			assert.Equal(t, tt.wantMerchant, result.Merchant)
			assert.Equal(t, tt.wantCurrency, result.Currency)
			require.NotNil(t, result.Amount)
			assert.Equal(t, tt.wantAmount, result.Amount.StringFixed(2))
			assert.Equal(t, tt.wantLast4, result.Last4)
		})
	}
}

func TestEngine_FromMessage_BodyChain(t *testing.T) {
	engine := NewEngine("ARS")

	t.Run("structured body pattern", func(t *testing.T) {
		body := "Hola,\nSe realizó un consumo por ARS 1.649,00 en PEDIDOS YA con la tarjeta terminada en 5678.\nSaludos."
		result := engine.FromMessage("Aviso de operación", body)
		require.True(t, result.Usable())
		assert.Equal(t, "PEDIDOS YA", result.Merchant)
		assert.Equal(t, "ARS", result.Currency)
		assert.Equal(t, "1649.00", result.Amount.StringFixed(2))
		assert.Equal(t, "5678", result.Last4)
		assert.Equal(t, "body-consumo", result.Matcher)
	})

	t.Run("loose body pattern with extra text", func(t *testing.T) {
		body := "Consumo autorizado con éxito por un total de $ 500,00 realizado en FARMACITY SA\nTarjeta: 9012"
		result := engine.FromMessage("Aviso", body)
		require.True(t, result.Usable())
		assert.Equal(t, "FARMACITY SA", result.Merchant)
		assert.Equal(t, "ARS", result.Currency)
		assert.Equal(t, "500.00", result.Amount.StringFixed(2))
		assert.Equal(t, "9012", result.Last4)
	})

	t.Run("minimal pattern with dedicated last4 scan", func(t *testing.T) {
		body := "Operación en SUPERMERCADO DIA por ARS 2.300,00.\nTu tarjeta terminada en 4455 fue utilizada."
		result := engine.FromMessage("Aviso", body)
		require.True(t, result.Usable())
		assert.Equal(t, "SUPERMERCADO DIA", result.Merchant)
		assert.Equal(t, "2300.00", result.Amount.StringFixed(2))
		assert.Equal(t, "4455", result.Last4)
	})

	t.Run("subject wins over body", func(t *testing.T) {
		subject := "Compra aprobada en RAPPI ARGENTINA por ARS 100,00"
		body := "Se realizó un consumo por ARS 999,99 en OTRO COMERCIO con la tarjeta terminada en 1111"
		result := engine.FromMessage(subject, body)
		require.True(t, result.Usable())
		assert.Equal(t, "RAPPI ARGENTINA", result.Merchant)
		assert.Equal(t, "100.00", result.Amount.StringFixed(2))
	})

	t.Run("no matcher yields usable result", func(t *testing.T) {
		result := engine.FromMessage("Novedades de tu banco", "Conocé los beneficios de tu cuenta.")
		assert.False(t, result.Usable())
	})

	t.Run("fields never merge across matchers", func(t *testing.T) {
		// A body where only the loose matcher finds the amount must take
		// merchant from the same matcher, not from a partial earlier one.
		body := "Consumo autorizado por USD 45,00 en AIRBNB PAYMENTS"
		result := engine.FromMessage("Aviso", body)
		require.True(t, result.Usable())
		assert.Equal(t, "AIRBNB PAYMENTS", result.Merchant)
		assert.Equal(t, "USD", result.Currency)
	})
}

func TestEngine_DefaultCurrency(t *testing.T) {
	engine := NewEngine("UYU")
	result := engine.FromSubject("Compra aprobada en TIENDA INGLESA por $ 350,00")
	require.True(t, result.Usable())
	assert.Equal(t, "UYU", result.Currency)
}
