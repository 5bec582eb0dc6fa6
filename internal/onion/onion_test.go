package onion

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/HannahMarsh/onion-circuit/internal/onion/keys"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddressing = Addressing{BaseRelayPort: 4000, BaseUserPort: 3000}

type testRelay struct {
	descriptor RelayDescriptor
	privateKey string
}

func newTestRelays(t *testing.T, scheme keys.Scheme, ids ...int) []testRelay {
	t.Helper()
	relays := make([]testRelay, len(ids))
	for i, id := range ids {
		prv, pub, err := scheme.GenerateKeyPair()
		if err != nil {
			t.Fatalf("GenerateKeyPair() error: %v", err)
		}
		relays[i] = testRelay{descriptor: RelayDescriptor{Identity: id, PublicKey: pub}, privateKey: prv}
	}
	return relays
}

func descriptors(relays []testRelay) []RelayDescriptor {
	out := make([]RelayDescriptor, len(relays))
	for i, r := range relays {
		out[i] = r.descriptor
	}
	return out
}

func privateKeyOf(t *testing.T, relays []testRelay, id int) string {
	t.Helper()
	for _, r := range relays {
		if r.descriptor.Identity == id {
			return r.privateKey
		}
	}
	t.Fatalf("no relay with id %d", id)
	return ""
}

func TestBuildAndPeelScenario(t *testing.T) {
	scheme := keys.RSAOAEP{}
	relays := newTestRelays(t, scheme, 1, 2, 3, 4)
	b := &Builder{Scheme: scheme, Selector: rand.New(rand.NewSource(42)), Addressing: testAddressing}

	o, err := b.BuildOnion([]byte("hi"), 7, descriptors(relays))
	require.NoError(t, err)
	require.Len(t, o.Circuit, CircuitLength)
	assert.Equal(t, testAddressing.RelayAddress(o.Circuit[0].Identity), o.FirstHopAddress)

	expectedNext := []int{
		testAddressing.RelayAddress(o.Circuit[1].Identity),
		testAddressing.RelayAddress(o.Circuit[2].Identity),
		testAddressing.UserAddress(7),
	}

	payload := o.Payload
	for i, hop := range o.Circuit {
		p := &Peeler{Scheme: scheme, PrivateKey: privateKeyOf(t, relays, hop.Identity)}
		layer, err := p.PeelLayer(payload)
		require.NoError(t, err, "hop %d", i)
		assert.Equal(t, BodyDecrypted, layer.State)
		assert.Equal(t, expectedNext[i], layer.NextAddress, "hop %d", i)
		payload = layer.ForwardPayload
	}
	assert.Equal(t, "hi", string(payload))
}

func TestRoundTripBothSchemes(t *testing.T) {
	messages := []string{"", "hello world", strings.Repeat("onion:", 200), "ünïcødé"}
	for _, scheme := range []keys.Scheme{keys.RSAOAEP{}, keys.SealedBox{}} {
		t.Run(scheme.Name(), func(t *testing.T) {
			relays := newTestRelays(t, scheme, 10, 11, 12)
			b := &Builder{Scheme: scheme, Addressing: testAddressing}

			for _, msg := range messages {
				o, err := b.BuildOnion([]byte(msg), 99, descriptors(relays))
				require.NoError(t, err)

				payload := o.Payload
				for _, hop := range o.Circuit {
					p := &Peeler{Scheme: scheme, PrivateKey: privateKeyOf(t, relays, hop.Identity)}
					layer, err := p.PeelLayer(payload)
					require.NoError(t, err)
					payload = layer.ForwardPayload
				}
				assert.Equal(t, msg, string(payload))
			}
		})
	}
}

func TestCircuitIsDistinctAndFromDirectory(t *testing.T) {
	relays := []RelayDescriptor{{1, "a"}, {2, "b"}, {2, "b-again"}, {3, "c"}, {4, "d"}, {5, "e"}}
	selector := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		circuit, err := SelectCircuit(relays, selector)
		require.NoError(t, err)
		seen := map[int]bool{}
		for _, r := range circuit {
			assert.False(t, seen[r.Identity], "relay %d selected twice", r.Identity)
			seen[r.Identity] = true
			if r.Identity == 2 {
				assert.Equal(t, "b", r.PublicKey, "first registration must win")
			}
		}
	}
}

func TestSelectionIsDeterministicWithSeededSource(t *testing.T) {
	relays := []RelayDescriptor{{4, "d"}, {1, "a"}, {3, "c"}, {2, "b"}}
	first, err := SelectCircuit(relays, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	second, err := SelectCircuit([]RelayDescriptor{{1, "a"}, {2, "b"}, {3, "c"}, {4, "d"}}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSecureSelectorPerm(t *testing.T) {
	for n := 0; n < 20; n++ {
		perm := SecureSelector{}.Perm(n)
		require.Len(t, perm, n)
		seen := make([]bool, n)
		for _, v := range perm {
			require.True(t, v >= 0 && v < n)
			require.False(t, seen[v])
			seen[v] = true
		}
	}
}

type countingScheme struct {
	keys.Scheme
	encryptions int
}

func (c *countingScheme) Encrypt(plaintext []byte, publicKey string) (string, error) {
	c.encryptions++
	return c.Scheme.Encrypt(plaintext, publicKey)
}

type panicSelector struct{}

func (panicSelector) Perm(int) []int { panic("selector must not be used") }

func TestInsufficientRelays(t *testing.T) {
	scheme := &countingScheme{Scheme: keys.RSAOAEP{}}
	b := &Builder{Scheme: scheme, Selector: panicSelector{}, Addressing: testAddressing}

	for _, dir := range [][]RelayDescriptor{
		nil,
		{{1, "a"}},
		{{1, "a"}, {2, "b"}},
		{{1, "a"}, {2, "b"}, {2, "b"}},
	} {
		o, err := b.BuildOnion([]byte("hi"), 7, dir)
		assert.Nil(t, o)
		assert.True(t, errors.Is(err, ErrInsufficientRelays), "got %v", err)
	}
	assert.Zero(t, scheme.encryptions)
}

func TestFixedHeaderLength(t *testing.T) {
	scheme := keys.RSAOAEP{}
	relays := newTestRelays(t, scheme, 1, 2, 3, 4, 5)
	b := &Builder{Scheme: scheme, Addressing: testAddressing}

	for _, size := range []int{0, 1, 15, 16, 17, 500, 5000} {
		o, err := b.BuildOnion([]byte(strings.Repeat("m", size)), 1, descriptors(relays))
		require.NoError(t, err)

		payload := o.Payload
		for _, hop := range o.Circuit {
			header, body, err := SplitPayload(payload, scheme.HeaderLen())
			require.NoError(t, err)
			assert.Len(t, header, 344)
			assert.Equal(t, 1, strings.Count(string(body), ":"))

			p := &Peeler{Scheme: scheme, PrivateKey: privateKeyOf(t, relays, hop.Identity)}
			layer, err := p.PeelLayer(payload)
			require.NoError(t, err)
			payload = layer.ForwardPayload
		}
	}
}

func TestPeelWithWrongKey(t *testing.T) {
	for _, scheme := range []keys.Scheme{keys.RSAOAEP{}, keys.SealedBox{}} {
		relays := newTestRelays(t, scheme, 1, 2, 3, 4)
		b := &Builder{Scheme: scheme, Selector: rand.New(rand.NewSource(3)), Addressing: testAddressing}
		o, err := b.BuildOnion([]byte("secret"), 2, descriptors(relays))
		require.NoError(t, err)

		for _, r := range relays {
			if r.descriptor.Identity == o.Circuit[0].Identity {
				continue
			}
			layer, err := (&Peeler{Scheme: scheme, PrivateKey: r.privateKey}).PeelLayer(o.Payload)
			assert.True(t, errors.Is(err, ErrKeyRecovery), "got %v", err)
			assert.Equal(t, Received, layer.State)
			assert.Nil(t, layer.ForwardPayload)
		}
	}
}

func TestPeelMalformedPayloads(t *testing.T) {
	scheme := keys.RSAOAEP{}
	relays := newTestRelays(t, scheme, 1)
	p := &Peeler{Scheme: scheme, PrivateKey: relays[0].privateKey}

	_, err := p.PeelLayer([]byte("too short"))
	assert.True(t, errors.Is(err, ErrKeyRecovery), "got %v", err)

	// valid header, corrupted body
	o, err := (&Builder{Scheme: scheme}).Wrap([]byte("x"), []Hop{{PublicKey: relays[0].descriptor.PublicKey, Address: 4001}}, 3001)
	require.NoError(t, err)
	corrupted := append(append([]byte{}, o[:scheme.HeaderLen()]...), []byte("not-a-body")...)
	layer, err := p.PeelLayer(corrupted)
	assert.True(t, errors.Is(err, ErrLayerDecryption), "got %v", err)
	assert.Equal(t, KeyRecovered, layer.State)
}

func TestWrapRejectsOutOfRangeAddress(t *testing.T) {
	relays := newTestRelays(t, keys.SealedBox{}, 1)
	b := &Builder{Scheme: keys.SealedBox{}}
	_, err := b.Wrap([]byte("x"), []Hop{{PublicKey: relays[0].descriptor.PublicKey, Address: 1}}, -1)
	assert.True(t, errors.Is(err, ErrAddressOutOfRange), "got %v", err)

	pub := relays[0].descriptor.PublicKey
	_, err = b.Wrap([]byte("x"), []Hop{{PublicKey: pub, Address: 4001}, {PublicKey: pub, Address: -5}}, 3001)
	assert.True(t, errors.Is(err, ErrAddressOutOfRange), "got %v", err)
}

func TestLayerKeyTravelsAsRawBytes(t *testing.T) {
	scheme := keys.RSAOAEP{}
	relays := newTestRelays(t, scheme, 1)
	b := &Builder{Scheme: scheme}
	payload, err := b.Wrap([]byte("x"), []Hop{{PublicKey: relays[0].descriptor.PublicKey, Address: 4001}}, 3001)
	require.NoError(t, err)

	raw, err := scheme.Decrypt(string(payload[:scheme.HeaderLen()]), relays[0].privateKey)
	require.NoError(t, err)
	require.Len(t, raw, keys.SymmetricKeySize)

	frame, err := keys.DecryptCBC(raw, string(payload[scheme.HeaderLen():]))
	require.NoError(t, err)
	assert.Equal(t, "0000003001x", string(frame))
}
