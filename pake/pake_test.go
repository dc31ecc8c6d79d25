package pake

import (
	"crypto"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/krish2718/mbedtls/kdf"
	"github.com/krish2718/mbedtls/keystore"
)

func jpakeSuite() CipherSuite {
	return CipherSuite{
		Algorithm: AlgJPAKE,
		Primitive: PrimitiveECC,
		Family:    FamilySECPR1,
		Bits:      256,
		Hash:      crypto.SHA256,
	}
}

func newPasswordKey(t *testing.T, material []byte) (*keystore.Store, keystore.KeyID) {
	keys := keystore.NewStore()
	id, err := keys.Import(
		keystore.Attributes{Type: keystore.TypePassword, Usage: keystore.UsageDerive},
		material)
	require.NoError(t, err)
	return keys, id
}

func newOperation(t *testing.T, role Role, keys *keystore.Store, id keystore.KeyID) *Operation {
	op := new(Operation)
	require.NoError(t, op.Setup(jpakeSuite()))
	require.NoError(t, op.SetRole(role))
	require.NoError(t, op.SetPasswordKey(keys, id))
	t.Cleanup(func() { op.Abort() })
	return op
}

var stepOrder = []Step{StepKeyShare, StepZKPublic, StepZKProof}

// shuttle moves parts payloads from one handle to the other, one step at a
// time in protocol order.
func shuttle(t *testing.T, from, to *Operation, parts int) {
	for i := 0; i < parts; i++ {
		step := stepOrder[i%3]
		buf := make([]byte, 512)
		n, err := from.Output(step, buf)
		require.NoError(t, err)
		require.NoError(t, to.Input(step, buf[:n]))
	}
}

func TestFullHandshake(t *testing.T) {

	keys, id := newPasswordKey(t, []byte("password"))

	cli := newOperation(t, RoleClient, keys, id)
	srv := newOperation(t, RoleServer, keys, id)

	shuttle(t, cli, srv, 6) // round one, client to server
	shuttle(t, srv, cli, 6) // round one, server to client
	shuttle(t, cli, srv, 3) // round two, client to server
	shuttle(t, srv, cli, 3) // round two, server to client

	var cliSink, srvSink kdf.Operation
	require.NoError(t, cliSink.Setup(kdf.HKDFSHA256))
	require.NoError(t, srvSink.Setup(kdf.HKDFSHA256))

	require.NoError(t, cli.GetImplicitKey(&cliSink))
	require.NoError(t, srv.GetImplicitKey(&srvSink))

	cliKey := make([]byte, 32)
	srvKey := make([]byte, 32)
	require.NoError(t, cliSink.ReadBytes(cliKey))
	require.NoError(t, srvSink.ReadBytes(srvKey))
	require.Equal(t, cliKey, srvKey)
	require.NotEqual(t, make([]byte, 32), cliKey)

	// The implicit key consumed the handles.
	require.ErrorIs(t, cli.GetImplicitKey(&cliSink), ErrBadState)
	_, err := cli.Output(StepKeyShare, make([]byte, 512))
	require.ErrorIs(t, err, ErrBadState)
}

func TestFullHandshakeInputBeforeOutput(t *testing.T) {

	keys, id := newPasswordKey(t, []byte("password"))

	cli := newOperation(t, RoleClient, keys, id)
	srv := newOperation(t, RoleServer, keys, id)

	// Per round, either direction may go first.
	shuttle(t, srv, cli, 6)
	shuttle(t, cli, srv, 6)
	shuttle(t, srv, cli, 3)
	shuttle(t, cli, srv, 3)

	var cliSink, srvSink kdf.Operation
	require.NoError(t, cliSink.Setup(kdf.HKDFSHA256))
	require.NoError(t, srvSink.Setup(kdf.HKDFSHA256))
	require.NoError(t, cli.GetImplicitKey(&cliSink))
	require.NoError(t, srv.GetImplicitKey(&srvSink))

	cliKey := make([]byte, 32)
	srvKey := make([]byte, 32)
	require.NoError(t, cliSink.ReadBytes(cliKey))
	require.NoError(t, srvSink.ReadBytes(srvKey))
	require.Equal(t, cliKey, srvKey)
}

func TestOutputWrongStepOrder(t *testing.T) {

	keys, id := newPasswordKey(t, []byte("password"))
	op := newOperation(t, RoleClient, keys, id)

	// The round must start with the key share; the mismatch leaves the
	// handle usable.
	_, err := op.Output(StepZKPublic, make([]byte, 512))
	require.ErrorIs(t, err, ErrBadState)

	n, err := op.Output(StepKeyShare, make([]byte, 512))
	require.NoError(t, err)
	require.Equal(t, 66, n)
}

func TestOutputMidRoundMismatchDoesNotAbort(t *testing.T) {

	keys, id := newPasswordKey(t, []byte("password"))
	op := newOperation(t, RoleClient, keys, id)

	buf := make([]byte, 512)
	_, err := op.Output(StepKeyShare, buf)
	require.NoError(t, err)

	// ZKProof instead of ZKPublic: rejected, cursor untouched.
	_, err = op.Output(StepZKProof, buf)
	require.ErrorIs(t, err, ErrBadState)

	n, err := op.Output(StepZKPublic, buf)
	require.NoError(t, err)
	require.Equal(t, 66, n)
}

func TestMalformedPeerRoundOne(t *testing.T) {

	keys, id := newPasswordKey(t, []byte("password"))

	cli := newOperation(t, RoleClient, keys, id)
	srv := newOperation(t, RoleServer, keys, id)

	// Collect the client's round one, then flip one byte inside the final
	// proof before handing it over.
	slices := make([][]byte, 6)
	for i := range slices {
		buf := make([]byte, 512)
		n, err := cli.Output(stepOrder[i%3], buf)
		require.NoError(t, err)
		slices[i] = buf[:n]
	}
	last := slices[5]
	last[len(last)-1] ^= 0x01

	for i := 0; i < 5; i++ {
		require.NoError(t, srv.Input(stepOrder[i%3], slices[i]))
	}

	// The engine sees the whole round only at the final proof, so the
	// corruption surfaces here and kills the handle.
	require.ErrorIs(t, srv.Input(StepZKProof, slices[5]), ErrDataInvalid)

	require.ErrorIs(t, srv.Input(StepKeyShare, slices[0]), ErrBadState)
	_, err := srv.Output(StepKeyShare, make([]byte, 512))
	require.ErrorIs(t, err, ErrBadState)
}

func TestOutputBufferTooSmallAborts(t *testing.T) {

	keys, id := newPasswordKey(t, []byte("password"))
	op := newOperation(t, RoleClient, keys, id)

	_, err := op.Output(StepKeyShare, make([]byte, 4))
	require.ErrorIs(t, err, ErrBufferTooSmall)

	_, err = op.Output(StepKeyShare, make([]byte, 512))
	require.ErrorIs(t, err, ErrBadState)
}

func TestInputOverflowAborts(t *testing.T) {

	keys, id := newPasswordKey(t, []byte("password"))
	op := newOperation(t, RoleServer, keys, id)

	require.ErrorIs(t,
		op.Input(StepKeyShare, make([]byte, BufferSize+1)),
		ErrInsufficientMemory)

	require.ErrorIs(t, op.Input(StepKeyShare, []byte{1}), ErrBadState)
}

func TestAbortIdempotent(t *testing.T) {

	t.Run("NeverSetUp", func(t *testing.T) {
		var op Operation
		require.NoError(t, op.Abort())
		require.NoError(t, op.Abort())
	})

	t.Run("AfterSetup", func(t *testing.T) {
		keys, id := newPasswordKey(t, []byte("password"))
		op := newOperation(t, RoleClient, keys, id)
		require.NoError(t, op.Abort())
		require.NoError(t, op.Abort())

		// An aborted handle is freshly initialized again.
		require.NoError(t, op.Setup(jpakeSuite()))
	})
}

func TestSetupValidation(t *testing.T) {

	cases := []struct {
		name  string
		suite CipherSuite
		err   error
	}{
		{"NotAPAKEAlgorithm", CipherSuite{Primitive: PrimitiveECC, Family: FamilySECPR1, Bits: 256, Hash: crypto.SHA256}, ErrInvalidArgument},
		{"InvalidPrimitive", CipherSuite{Algorithm: AlgJPAKE, Family: FamilySECPR1, Bits: 256, Hash: crypto.SHA256}, ErrInvalidArgument},
		{"NotAHash", CipherSuite{Algorithm: AlgJPAKE, Primitive: PrimitiveECC, Family: FamilySECPR1, Bits: 256}, ErrInvalidArgument},
		{"WrongFamily", CipherSuite{Algorithm: AlgJPAKE, Primitive: PrimitiveECC, Family: FamilySECPK1, Bits: 256, Hash: crypto.SHA256}, ErrNotSupported},
		{"WrongBits", CipherSuite{Algorithm: AlgJPAKE, Primitive: PrimitiveECC, Family: FamilySECPR1, Bits: 384, Hash: crypto.SHA256}, ErrNotSupported},
		{"WrongHash", CipherSuite{Algorithm: AlgJPAKE, Primitive: PrimitiveECC, Family: FamilySECPR1, Bits: 256, Hash: crypto.SHA512}, ErrNotSupported},
		{"DHPrimitive", CipherSuite{Algorithm: AlgJPAKE, Primitive: PrimitiveDH, Family: FamilySECPR1, Bits: 256, Hash: crypto.SHA256}, ErrNotSupported},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var op Operation
			require.ErrorIs(t, op.Setup(tc.suite), tc.err)

			// A rejected suite does not consume the handle.
			require.NoError(t, op.Setup(jpakeSuite()))
			op.Abort()
		})
	}

	t.Run("SetupTwice", func(t *testing.T) {
		var op Operation
		require.NoError(t, op.Setup(jpakeSuite()))
		require.ErrorIs(t, op.Setup(jpakeSuite()), ErrBadState)
		op.Abort()
	})
}

func TestSetPasswordKey(t *testing.T) {

	keys := keystore.NewStore()

	passwordID, err := keys.Import(
		keystore.Attributes{Type: keystore.TypePassword, Usage: keystore.UsageDerive},
		[]byte("password"))
	require.NoError(t, err)
	rawID, err := keys.Import(
		keystore.Attributes{Type: keystore.TypeRawData, Usage: keystore.UsageDerive},
		[]byte("raw"))
	require.NoError(t, err)
	exportOnlyID, err := keys.Import(
		keystore.Attributes{Type: keystore.TypePasswordHash, Usage: keystore.UsageExport},
		[]byte("hash"))
	require.NoError(t, err)

	setup := func(t *testing.T) *Operation {
		op := new(Operation)
		require.NoError(t, op.Setup(jpakeSuite()))
		t.Cleanup(func() { op.Abort() })
		return op
	}

	t.Run("Password", func(t *testing.T) {
		require.NoError(t, setup(t).SetPasswordKey(keys, passwordID))
	})

	t.Run("WrongType", func(t *testing.T) {
		require.ErrorIs(t, setup(t).SetPasswordKey(keys, rawID), ErrInvalidArgument)
	})

	t.Run("MissingDeriveUsage", func(t *testing.T) {
		require.ErrorIs(t, setup(t).SetPasswordKey(keys, exportOnlyID), ErrNotPermitted)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		require.ErrorIs(t, setup(t).SetPasswordKey(keys, keystore.KeyID(1234)), keystore.ErrDoesNotExist)
	})

	t.Run("BeforeSetup", func(t *testing.T) {
		var op Operation
		require.ErrorIs(t, op.SetPasswordKey(keys, passwordID), ErrBadState)
	})
}

func TestSetUserSetPeer(t *testing.T) {

	var op Operation
	require.NoError(t, op.Setup(jpakeSuite()))
	defer op.Abort()

	// Argument validation runs first, then the unsupported binding is
	// reported; the handle stays in the setup state throughout.
	require.ErrorIs(t, op.SetUser(nil), ErrInvalidArgument)
	require.ErrorIs(t, op.SetUser([]byte("alice")), ErrNotSupported)
	require.ErrorIs(t, op.SetPeer([]byte{}), ErrInvalidArgument)
	require.ErrorIs(t, op.SetPeer([]byte("bob")), ErrNotSupported)
	require.NoError(t, op.SetRole(RoleClient))
}

func TestSetRole(t *testing.T) {

	t.Run("BeforeSetup", func(t *testing.T) {
		var op Operation
		require.ErrorIs(t, op.SetRole(RoleClient), ErrBadState)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		var op Operation
		require.NoError(t, op.Setup(jpakeSuite()))
		defer op.Abort()
		require.ErrorIs(t, op.SetRole(Role(42)), ErrInvalidArgument)
	})

	t.Run("FirstSecondUnsupported", func(t *testing.T) {
		var op Operation
		require.NoError(t, op.Setup(jpakeSuite()))
		defer op.Abort()
		require.ErrorIs(t, op.SetRole(RoleFirst), ErrNotSupported)
		require.ErrorIs(t, op.SetRole(RoleSecond), ErrNotSupported)
	})
}

func TestOutputWithoutRoleAborts(t *testing.T) {

	keys, id := newPasswordKey(t, []byte("password"))

	var op Operation
	require.NoError(t, op.Setup(jpakeSuite()))
	require.NoError(t, op.SetPasswordKey(keys, id))

	// The lazy engine setup cannot derive a JPAKE role and the failure
	// aborts the handle.
	_, err := op.Output(StepKeyShare, make([]byte, 512))
	require.ErrorIs(t, err, ErrBadState)
	require.ErrorIs(t, op.SetRole(RoleClient), ErrBadState)
}

func TestOutputInvalidArguments(t *testing.T) {

	keys, id := newPasswordKey(t, []byte("password"))
	op := newOperation(t, RoleClient, keys, id)

	_, err := op.Output(StepKeyShare, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = op.Output(Step(9), make([]byte, 512))
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.ErrorIs(t, op.Input(StepKeyShare, nil), ErrInvalidArgument)
	require.ErrorIs(t, op.Input(Step(9), []byte{1}), ErrInvalidArgument)

	// None of the rejections consumed the handle.
	_, err = op.Output(StepKeyShare, make([]byte, 512))
	require.NoError(t, err)
}

func TestGetImplicitKeyBeforeDerive(t *testing.T) {

	keys, id := newPasswordKey(t, []byte("password"))

	cli := newOperation(t, RoleClient, keys, id)
	srv := newOperation(t, RoleServer, keys, id)

	var sink kdf.Operation
	require.NoError(t, sink.Setup(kdf.HKDFSHA256))

	require.ErrorIs(t, cli.GetImplicitKey(&sink), ErrBadState)

	shuttle(t, cli, srv, 6)
	shuttle(t, srv, cli, 6)
	require.ErrorIs(t, cli.GetImplicitKey(&sink), ErrBadState)
}

func TestServerRoundTwoKeyShareFraming(t *testing.T) {

	keys, id := newPasswordKey(t, []byte("password"))

	cli := newOperation(t, RoleClient, keys, id)
	srv := newOperation(t, RoleServer, keys, id)

	shuttle(t, cli, srv, 6)
	shuttle(t, srv, cli, 6)

	// The server's second-round key share carries the three-byte curve
	// parameters in front of the length-prefixed point.
	srvSlices := make([][]byte, 3)
	for i := range srvSlices {
		buf := make([]byte, 512)
		n, err := srv.Output(stepOrder[i], buf)
		require.NoError(t, err)
		srvSlices[i] = buf[:n]
	}
	require.Equal(t, 3+65+1, len(srvSlices[0]))
	require.Equal(t, byte(3), srvSlices[0][0])
	require.Equal(t, byte(65), srvSlices[0][3])

	// The client's is a plain length-prefixed point.
	cliSlices := make([][]byte, 3)
	for i := range cliSlices {
		buf := make([]byte, 512)
		n, err := cli.Output(stepOrder[i], buf)
		require.NoError(t, err)
		cliSlices[i] = buf[:n]
	}
	require.Equal(t, 65+1, len(cliSlices[0]))
	require.Equal(t, byte(65), cliSlices[0][0])

	for i := range stepOrder {
		require.NoError(t, cli.Input(stepOrder[i], srvSlices[i]))
		require.NoError(t, srv.Input(stepOrder[i], cliSlices[i]))
	}
}
