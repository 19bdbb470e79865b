package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/jhwagner/stretch-bench/pkg/cluster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

const (
	testNamespace = "stretch-system"

	testKubeconfig = `apiVersion: v1
kind: Config
current-context: east
clusters:
- name: east
  cluster:
    server: https://127.0.0.1:35001
    insecure-skip-tls-verify: true
contexts:
- name: east
  context:
    cluster: east
    user: east
users:
- name: east
  user:
    token: kubeconfig-token
`
)

func secret(name string, data map[string][]byte) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: testNamespace},
		Data:       data,
	}
}

func TestStore_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		secrets  []runtime.Object
		desc     cluster.Descriptor
		wantHost string
		wantTok  string
		wantCA   string
		wantErr  error
	}{
		{
			name:     "kubeconfig with endpoint override",
			secrets:  []runtime.Object{secret("east-kubeconfig", map[string][]byte{KubeconfigKey: []byte(testKubeconfig)})},
			desc:     cluster.NewDescriptor("https://east.example.com:6443", "east-kubeconfig"),
			wantHost: "https://east.example.com:6443",
			wantTok:  "kubeconfig-token",
		},
		{
			name:     "kubeconfig without endpoint keeps server",
			secrets:  []runtime.Object{secret("east-kubeconfig", map[string][]byte{KubeconfigKey: []byte(testKubeconfig)})},
			desc:     cluster.NewDescriptor("", "east-kubeconfig"),
			wantHost: "https://127.0.0.1:35001",
			wantTok:  "kubeconfig-token",
		},
		{
			name: "token and ca",
			secrets: []runtime.Object{secret("west-token", map[string][]byte{
				TokenKey: []byte("west-token"),
				CAKey:    []byte("ca-bundle"),
			})},
			desc:     cluster.NewDescriptor("https://west.example.com:6443", "west-token"),
			wantHost: "https://west.example.com:6443",
			wantTok:  "west-token",
			wantCA:   "ca-bundle",
		},
		{
			name:    "missing secret",
			desc:    cluster.NewDescriptor("https://east.example.com:6443", "east-kubeconfig"),
			wantErr: ErrCredentialsNotFound,
		},
		{
			name:    "secret without credential keys",
			secrets: []runtime.Object{secret("empty", map[string][]byte{"other": []byte("x")})},
			desc:    cluster.NewDescriptor("https://east.example.com:6443", "empty"),
			wantErr: ErrNoCredentialMaterial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(fake.NewSimpleClientset(tt.secrets...), testNamespace)

			config, err := store.Resolve(context.Background(), tt.desc)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
				assert.Contains(t, err.Error(), tt.desc.CredentialRef())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, config.Host)
			assert.Equal(t, tt.wantTok, config.BearerToken)
			assert.Equal(t, tt.wantCA, string(config.TLSClientConfig.CAData))
		})
	}
}

func TestStore_ResolveTokenWithoutEndpoint(t *testing.T) {
	store := NewStore(fake.NewSimpleClientset(
		secret("west-token", map[string][]byte{TokenKey: []byte("t")}),
	), testNamespace)

	_, err := store.Resolve(context.Background(), cluster.NewDescriptor("", "west-token"))
	assert.Error(t, err)
}

func TestStore_ResolveAPIError(t *testing.T) {
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "secrets", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(corev1.Resource("secrets"), "east-kubeconfig", errors.New("denied"))
	})
	store := NewStore(client, testNamespace)

	_, err := store.Resolve(context.Background(), cluster.NewDescriptor("https://east:6443", "east-kubeconfig"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCredentialsNotFound))
	assert.True(t, apierrors.IsForbidden(err))
}

func TestStore_PutKubeconfig(t *testing.T) {
	ctx := context.Background()
	client := fake.NewSimpleClientset()
	store := NewStore(client, testNamespace)

	require.NoError(t, store.PutKubeconfig(ctx, "east-kubeconfig", []byte("v1"), "alpha"))
	require.NoError(t, store.PutKubeconfig(ctx, "east-kubeconfig", []byte("v2"), "alpha"))

	got, err := client.CoreV1().Secrets(testNamespace).Get(ctx, "east-kubeconfig", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got.Data[KubeconfigKey]))
	assert.Equal(t, "stretch-bench", got.Labels["app.kubernetes.io/managed-by"])
	assert.Equal(t, "alpha", got.Labels[OwnerLabel])
}

func TestStore_PutKubeconfigRefusesForeignSecrets(t *testing.T) {
	ctx := context.Background()
	client := fake.NewSimpleClientset(secret("user-kubeconfig", map[string][]byte{KubeconfigKey: []byte("user")}))
	store := NewStore(client, testNamespace)

	require.NoError(t, store.PutKubeconfig(ctx, "west-kubeconfig", []byte("alpha"), "alpha"))
	require.NoError(t, store.PutKubeconfig(ctx, "registered", []byte("registered"), ""))

	tests := []struct {
		name   string
		secret string
		owner  string
		keep   string
	}{
		{name: "other topology", secret: "west-kubeconfig", owner: "beta", keep: "alpha"},
		{name: "registered cluster", secret: "registered", owner: "beta", keep: "registered"},
		{name: "topology secret from register", secret: "west-kubeconfig", owner: "", keep: "alpha"},
		{name: "secret not stored by stretch-bench", secret: "user-kubeconfig", owner: "", keep: "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.PutKubeconfig(ctx, tt.secret, []byte("overwritten"), tt.owner)
			assert.ErrorIs(t, err, ErrNotOwned)

			got, err := client.CoreV1().Secrets(testNamespace).Get(ctx, tt.secret, metav1.GetOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.keep, string(got.Data[KubeconfigKey]))
		})
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	client := fake.NewSimpleClientset(secret("user-kubeconfig", nil))
	store := NewStore(client, testNamespace)

	require.NoError(t, store.PutKubeconfig(ctx, "east-kubeconfig", []byte("v1"), "alpha"))

	assert.ErrorIs(t, store.Delete(ctx, "east-kubeconfig", "beta"), ErrNotOwned)
	assert.ErrorIs(t, store.Delete(ctx, "user-kubeconfig", ""), ErrNotOwned)
	_, err := client.CoreV1().Secrets(testNamespace).Get(ctx, "east-kubeconfig", metav1.GetOptions{})
	require.NoError(t, err, "a refused delete leaves the secret in place")

	require.NoError(t, store.Delete(ctx, "east-kubeconfig", "alpha"))
	require.NoError(t, store.Delete(ctx, "east-kubeconfig", "alpha"), "deleting a missing secret is not an error")

	_, err = client.CoreV1().Secrets(testNamespace).Get(ctx, "east-kubeconfig", metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestStore_EnsureNamespace(t *testing.T) {
	ctx := context.Background()
	client := fake.NewSimpleClientset()
	store := NewStore(client, testNamespace)

	require.NoError(t, store.EnsureNamespace(ctx))
	require.NoError(t, store.EnsureNamespace(ctx))

	_, err := client.CoreV1().Namespaces().Get(ctx, testNamespace, metav1.GetOptions{})
	assert.NoError(t, err)
}

func TestStore_CopyTo(t *testing.T) {
	ctx := context.Background()
	client := fake.NewSimpleClientset(
		secret("east-kubeconfig", map[string][]byte{KubeconfigKey: []byte(testKubeconfig)}),
		secret("west-token", map[string][]byte{TokenKey: []byte("t")}),
	)
	src := NewStore(client, testNamespace)
	dst := NewStore(client, "kueue-system")

	require.NoError(t, src.CopyTo(ctx, "east-kubeconfig", dst, "alpha"))
	got, err := client.CoreV1().Secrets("kueue-system").Get(ctx, "east-kubeconfig", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, testKubeconfig, string(got.Data[KubeconfigKey]))
	assert.Equal(t, "alpha", got.Labels[OwnerLabel])

	assert.ErrorIs(t, src.CopyTo(ctx, "east-kubeconfig", dst, "beta"), ErrNotOwned)
	assert.ErrorIs(t, src.CopyTo(ctx, "west-token", dst, "alpha"), ErrNoCredentialMaterial)
	assert.ErrorIs(t, src.CopyTo(ctx, "missing", dst, "alpha"), ErrCredentialsNotFound)
}
